// Package payload flattens a registration record into the document shape the
// downstream automation sink consumes. The sink's field mapping was authored
// against inconsistent historical contracts, so some fields appear under two
// key names; that aliasing lives entirely here, after canonical construction,
// never in the record model.
package payload

import (
	"encoding/json"

	"go-guest-registry/models"
)

// Client is one guest element of the submission document. The contact email
// and the four consent flags from the parent record are copied onto every
// element because the sink processes clients independently.
type Client struct {
	FullName         string `json:"fullName"`
	DocumentType     string `json:"documentType"`
	IDNumber         string `json:"idNumber"`
	BirthDate        string `json:"birthDate"`
	NationalityMode  string `json:"nationalityMode"`
	Nationality      string `json:"nationality"`
	CountryOfOrigin  string `json:"countryOfOrigin"`
	NextDestination  string `json:"nextDestination"`
	Phone            string `json:"phone"`
	PhoneCountryCode string `json:"phoneCountryCode"`
	CityOfResidence  string `json:"cityOfResidence"`
	FlightNumber     string `json:"flightNumber,omitempty"`
	IDFrontImage     string `json:"idFrontImage"`
	IDBackImage      string `json:"idBackImage,omitempty"`

	// legacy key names still read by older sink flows
	IDFrontURL string `json:"idFrontUrl"`
	IDBackURL  string `json:"idBackUrl,omitempty"`

	Email          string `json:"email"`
	ConsentEntry   bool   `json:"consentEntry"`
	ConsentTra     bool   `json:"consentTra"`
	ConsentMig     bool   `json:"consentMig"`
	ConsentDp      bool   `json:"consentDp"`
	SwornStatement bool   `json:"swornStatement"`
	Signature      string `json:"signature,omitempty"`
}

// Document is the complete submission body.
type Document struct {
	Property string   `json:"property"`
	Email    string   `json:"email"`
	Clients  []Client `json:"clients"`
}

// Normalize builds the submission document from a record. It is pure and
// deterministic: identical input always yields an identical document, so the
// sink can log and replay bodies for debugging.
func Normalize(r *models.RegistrationRecord) Document {
	doc := Document{
		Property: r.Property,
		Email:    r.ContactEmail,
		Clients:  make([]Client, 0, len(r.Guests)),
	}
	for _, g := range r.Guests {
		c := Client{
			FullName:         g.FullName,
			DocumentType:     g.DocumentType,
			IDNumber:         g.IDNumber,
			BirthDate:        g.BirthDate,
			NationalityMode:  g.NationalityMode,
			Nationality:      g.Nationality,
			CountryOfOrigin:  g.CountryOfOrigin,
			NextDestination:  g.NextDestination,
			Phone:            models.ComposePhone(g.PhoneCountryCode, g.Phone),
			PhoneCountryCode: g.PhoneCountryCode,
			CityOfResidence:  g.CityOfResidence,
			FlightNumber:     g.FlightNumber,
			IDFrontImage:     g.IDFrontImage,
			IDBackImage:      g.IDBackImage,
			Email:            r.ContactEmail,
			ConsentEntry:     r.Consents.Entry,
			ConsentTra:       r.Consents.Transport,
			ConsentMig:       r.Consents.Migration,
			ConsentDp:        r.Consents.DataProtection,
			SwornStatement:   r.SwornStatement,
			Signature:        r.SignatureImage,
		}
		applyCompatAliases(&c)
		doc.Clients = append(doc.Clients, c)
	}
	return doc
}

// applyCompatAliases fills the legacy key names from their canonical
// counterparts.
func applyCompatAliases(c *Client) {
	c.IDFrontURL = c.IDFrontImage
	c.IDBackURL = c.IDBackImage
}

// Marshal serializes a document. Struct tags fix the key order, so equal
// documents marshal to equal bytes.
func Marshal(doc Document) ([]byte, error) {
	return json.Marshal(doc)
}
