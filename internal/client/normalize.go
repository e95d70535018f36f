package client

import "gadget-hub/internal/models"

// Older hub deployments served inconsistent field names (name vs
// productName, image vs img, _id vs id). The wire types below absorb that
// variance so everything past this boundary sees one canonical shape.

type wireListing struct {
	ID                string  `json:"id"`
	MongoID           string  `json:"_id"`
	Name              string  `json:"name"`
	ProductName       string  `json:"productName"`
	Image             string  `json:"image"`
	Img               string  `json:"img"`
	Price             float64 `json:"price"`
	OriginCountry     string  `json:"originCountry"`
	Rating            float64 `json:"rating"`
	AvailableQuantity int     `json:"availableQuantity"`
	UserEmail         string  `json:"userEmail"`
}

func (w *wireListing) normalize() models.ProductListing {
	return models.ProductListing{
		ID:                coalesce(w.ID, w.MongoID),
		Name:              coalesce(w.Name, w.ProductName),
		Image:             coalesce(w.Image, w.Img),
		Price:             w.Price,
		OriginCountry:     w.OriginCountry,
		Rating:            w.Rating,
		AvailableQuantity: w.AvailableQuantity,
		UserEmail:         w.UserEmail,
	}
}

type wireImportRecord struct {
	ID                string  `json:"id"`
	MongoID           string  `json:"_id"`
	ListingID         string  `json:"listingId"`
	UserID            string  `json:"userId"`
	ImportedQuantity  int     `json:"importedQuantity"`
	Name              string  `json:"name"`
	ProductName       string  `json:"productName"`
	Image             string  `json:"image"`
	Img               string  `json:"img"`
	Price             float64 `json:"price"`
	OriginCountry     string  `json:"originCountry"`
	Rating            float64 `json:"rating"`
	AvailableQuantity int     `json:"availableQuantity"`
}

func (w *wireImportRecord) normalize() models.ImportRecord {
	return models.ImportRecord{
		ID:                coalesce(w.ID, w.MongoID),
		ListingID:         coalesce(w.ListingID, coalesce(w.ID, w.MongoID)),
		UserID:            w.UserID,
		ImportedQuantity:  w.ImportedQuantity,
		Name:              coalesce(w.Name, w.ProductName),
		Image:             coalesce(w.Image, w.Img),
		Price:             w.Price,
		OriginCountry:     w.OriginCountry,
		Rating:            w.Rating,
		AvailableQuantity: w.AvailableQuantity,
	}
}

func coalesce(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
