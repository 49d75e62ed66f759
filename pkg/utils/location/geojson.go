package location

// Point is a GeoJSON point. Coordinates are [longitude, latitude].
type Point struct {
	Type        string     `json:"type"`
	Coordinates [2]float64 `json:"coordinates"`
}

type FeatureProperties struct {
	ID        uint    `json:"id"`
	ProductID uint    `json:"product_id"`
	Address   *string `json:"address"`
	IsActive  bool    `json:"is_active"`
}

type Feature struct {
	Type       string            `json:"type"`
	Geometry   Point             `json:"geometry"`
	Properties FeatureProperties `json:"properties"`
}

type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

// NewPointFeature builds a Feature. Note the argument order is lat, lon but
// the emitted coordinates are lon, lat.
func NewPointFeature(id, productID uint, lat, lon float64, address *string, active bool) Feature {
	return Feature{
		Type: "Feature",
		Geometry: Point{
			Type:        "Point",
			Coordinates: [2]float64{lon, lat},
		},
		Properties: FeatureProperties{
			ID:        id,
			ProductID: productID,
			Address:   address,
			IsActive:  active,
		},
	}
}

func NewFeatureCollection(features []Feature) FeatureCollection {
	if features == nil {
		features = []Feature{}
	}
	return FeatureCollection{Type: "FeatureCollection", Features: features}
}
