package emissions

import (
	"carbon-scribe/dairy-footprint/internal/factors"
)

const inputsMethodology = "Purchased inputs cradle-to-gate footprints"

// FeedCategory is a purchased feed with its own regional footprint
type FeedCategory string

const (
	FeedSoybeanMeal  FeedCategory = "soybean_meal"
	FeedRapeseedMeal FeedCategory = "rapeseed_meal"
	FeedCornGrain    FeedCategory = "corn_grain"
	FeedBarley       FeedCategory = "barley"
	FeedWheatBran    FeedCategory = "wheat_bran"
	FeedCornSilage   FeedCategory = "corn_silage"
	FeedGrassSilage  FeedCategory = "grass_silage"
	FeedHay          FeedCategory = "hay"
)

// FeedCategories lists the accepted feeds in reporting order
var FeedCategories = []FeedCategory{
	FeedSoybeanMeal, FeedRapeseedMeal, FeedCornGrain, FeedBarley,
	FeedWheatBran, FeedCornSilage, FeedGrassSilage, FeedHay,
}

// PurchasedInputs is the annual quantity of bought-in materials
type PurchasedInputs struct {
	ConcentrateKg  float64        `json:"concentrate_kg"`
	FertilizerNKg  float64        `json:"fertilizer_n_kg"`
	FertilizerType FertilizerType `json:"fertilizer_type,omitempty"`
	PlasticKg      float64        `json:"plastic_kg"`
	// Feeds are kg purchased per category; counted only when the boundary includes feed
	Feeds               map[FeedCategory]float64 `json:"feeds,omitempty"`
	TransportDistanceKm float64                  `json:"transport_distance_km,omitempty"`
	Region              string                   `json:"region,omitempty"`

	Uncertainty *UncertaintyOptions `json:"uncertainty,omitempty"`
}

func inputsKeys() []string {
	keys := []string{"co2eq_concentrate_kg", "co2eq_fertilizer_kg", "co2eq_plastic_kg"}
	for _, f := range FeedCategories {
		keys = append(keys, "co2eq_"+string(f)+"_kg")
	}
	return append(keys, "co2eq_feed_kg", "co2eq_transport_kg")
}

func (in PurchasedInputs) validate(d Defaults) error {
	for _, q := range []struct {
		field string
		value float64
	}{
		{"concentrate_kg", in.ConcentrateKg},
		{"fertilizer_n_kg", in.FertilizerNKg},
		{"plastic_kg", in.PlasticKg},
		{"transport_distance_km", in.TransportDistanceKm},
	} {
		if err := checkQuantity(q.field, q.value); err != nil {
			return err
		}
	}
	if in.FertilizerType != "" {
		if err := checkEnum("fertilizer_type", in.FertilizerType, FertilizerTypes); err != nil {
			return err
		}
	}
	for feed, kg := range in.Feeds {
		if err := checkEnum("feed", feed, FeedCategories); err != nil {
			return err
		}
		if err := checkQuantity("feeds."+string(feed), kg); err != nil {
			return err
		}
	}
	if in.Uncertainty != nil {
		return in.Uncertainty.withDefaults(d).validate(d)
	}
	return nil
}

// Inputs calculates embedded emissions of purchased materials. The feed
// categories and their transport are gated separately by the feed tag.
func (e *Engine) Inputs(in PurchasedInputs, boundary *Boundary) (*SourceResult, error) {
	if err := in.validate(e.defaults); err != nil {
		return nil, err
	}
	if !boundary.Includes(SourceInputs) {
		return e.excluded(SourceInputs, inputsMethodology, 0, inputsKeys(), false), nil
	}

	res := e.newResult(SourceInputs, inputsMethodology, 0)
	for _, k := range inputsKeys() {
		res.Breakdown[k] = 0
	}

	fertType := in.FertilizerType
	if fertType == "" {
		fertType = FertilizerOther
	}
	items := []struct {
		key, label, substance string
		qty                   float64
	}{
		{"co2eq_concentrate_kg", "concentrate", factors.Concentrate, in.ConcentrateKg},
		{"co2eq_fertilizer_kg", "fertilizer_" + string(fertType), factors.Key(factors.FertilizerMfg, string(fertType)), in.FertilizerNKg},
		{"co2eq_plastic_kg", "plastic", factors.Plastic, in.PlasticKg},
	}
	var total float64
	for _, it := range items {
		if it.qty == 0 {
			continue
		}
		ef, err := e.factor(res, it.label, it.substance, in.Region, int(Tier1))
		if err != nil {
			return nil, err
		}
		res.Breakdown[it.key] = it.qty * ef
		total += it.qty * ef
	}

	feedCO2, transportCO2, err := e.feedEmissions(res, in, boundary)
	if err != nil {
		return nil, err
	}
	total += feedCO2 + transportCO2

	res.addStep("inputs_total", "CO2e = sum(quantity x EF) + feed tonnes x km x EF_road",
		map[string]float64{"co2eq_feed_kg": feedCO2, "co2eq_transport_kg": transportCO2},
		map[string]float64{"co2eq_kg": total})

	out, err := finish(res, total)
	if err != nil {
		return nil, err
	}
	if in.Uncertainty != nil {
		opts := in.Uncertainty.withDefaults(e.defaults)
		if out.Uncertainty, err = sampleAround(total, opts); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (e *Engine) feedEmissions(res *SourceResult, in PurchasedInputs, boundary *Boundary) (float64, float64, error) {
	var feedKg float64
	for _, kg := range in.Feeds {
		feedKg += kg
	}
	if feedKg == 0 {
		return 0, 0, nil
	}
	if !boundary.Includes(SourceFeed) {
		res.addNote("purchased feed outside boundary")
		return 0, 0, nil
	}

	var feedCO2 float64
	for _, feed := range FeedCategories {
		kg := in.Feeds[feed]
		if kg == 0 {
			continue
		}
		ef, err := e.factor(res, "feed_"+string(feed), factors.Key(factors.Feed, string(feed)), in.Region, int(Tier1))
		if err != nil {
			return 0, 0, err
		}
		res.Breakdown["co2eq_"+string(feed)+"_kg"] = kg * ef
		feedCO2 += kg * ef
	}
	res.Breakdown["co2eq_feed_kg"] = feedCO2

	var transportCO2 float64
	if in.TransportDistanceKm > 0 {
		ef, err := e.factor(res, "transport_road", factors.TransportRoad, in.Region, int(Tier1))
		if err != nil {
			return 0, 0, err
		}
		tonnes := feedKg / 1000
		transportCO2 = tonnes * in.TransportDistanceKm * ef
		res.addStep("feed_transport", "CO2e = feed tonnes x km x EF_road",
			map[string]float64{"feed_t": tonnes, "distance_km": in.TransportDistanceKm, "ef_road": ef},
			map[string]float64{"co2eq_transport_kg": transportCO2})
	}
	res.Breakdown["co2eq_transport_kg"] = transportCO2

	return feedCO2, transportCO2, nil
}
