package service

import "time"

// Issuer is a registered link issuer, without its secret.
type Issuer struct {
	Name    string
	Created time.Time
}

// IssuerStore handles persistence of link issuers. GetIssuerSecret returns
// sql.ErrNoRows for unknown names and InsertIssuer wraps ErrIssuerExists on
// a duplicate name.
type IssuerStore interface {
	InsertIssuer(name string, secret []byte, created time.Time) error
	GetIssuerSecret(name string) ([]byte, error)
	ListIssuers() ([]Issuer, error)
	DeleteIssuer(name string) (deleted bool, err error)
}
