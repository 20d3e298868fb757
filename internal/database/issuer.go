package database

import (
	"fmt"
	"time"

	"git.sr.ht/~jakintosh/civid/internal/service"
)

func (s *SQLiteStore) IssuerStore() service.IssuerStore {
	return s
}

func (s *SQLiteStore) InsertIssuer(
	name string,
	secret []byte,
	created time.Time,
) error {
	_, err := s.db.Exec(`
		INSERT INTO issuer (name, secret, created)
		VALUES (?, ?, ?);`,
		name,
		secret,
		created.Unix(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", service.ErrIssuerExists, name)
		}
		return fmt.Errorf("couldn't insert into issuer: %v", err)
	}
	return nil
}

// GetIssuerSecret returns sql.ErrNoRows when no issuer has that name.
func (s *SQLiteStore) GetIssuerSecret(
	name string,
) (
	[]byte,
	error,
) {
	row := s.db.QueryRow(`
		SELECT secret
		FROM issuer i
		WHERE i.name=?;`,
		name,
	)

	var secret []byte
	err := row.Scan(&secret)
	return secret, err
}

func (s *SQLiteStore) ListIssuers() (
	[]service.Issuer,
	error,
) {
	rows, err := s.db.Query(`
		SELECT name, created
		FROM issuer
		ORDER BY name;`,
	)
	if err != nil {
		return nil, fmt.Errorf("couldn't query issuers: %v", err)
	}
	defer rows.Close()

	issuers := []service.Issuer{}
	for rows.Next() {
		var name string
		var created int64
		if err := rows.Scan(&name, &created); err != nil {
			return nil, fmt.Errorf("couldn't scan issuer: %v", err)
		}
		issuers = append(issuers, service.Issuer{
			Name:    name,
			Created: time.Unix(created, 0).UTC(),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("couldn't iterate issuers: %v", err)
	}
	return issuers, nil
}

func (s *SQLiteStore) DeleteIssuer(
	name string,
) (
	bool,
	error,
) {
	result, err := s.db.Exec(`
		DELETE FROM issuer
		WHERE name=?;`,
		name,
	)
	if err != nil {
		return false, fmt.Errorf("couldn't delete issuer: %v", err)
	}

	count, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("couldn't count deleted issuers: %v", err)
	}
	return count > 0, nil
}

var _ service.IssuerStore = (*SQLiteStore)(nil)
