// Package customer provides the profile stores and the offer-rule catalog
// used by the retention flow.
package customer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog/log"

	contractx "github.com/techflow/careflow/agent/contract"
	statex "github.com/techflow/careflow/agent/state"
)

var errMissingEmailColumn = errors.New("customer csv has no email column")

// CSVStore is a read-only profile store backed by a CSV file. The whole file
// is loaded at construction; lookups are case-insensitive on email.
type CSVStore struct {
	byEmail map[string]statex.Profile
}

func NewCSVStore(path string) (*CSVStore, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open customer csv %s: %w", path, err)
	}
	defer f.Close()

	store, err := readCSVStore(f)
	if err != nil {
		return nil, fmt.Errorf("load customer csv %s: %w", path, err)
	}
	log.Info().Str("path", path).Int("customers", len(store.byEmail)).Msg("customer profiles loaded")
	return store, nil
}

func readCSVStore(r io.Reader) (*CSVStore, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	emailCol := -1
	for i, name := range header {
		header[i] = strings.ToLower(strings.TrimSpace(name))
		if header[i] == "email" {
			emailCol = i
		}
	}
	if emailCol < 0 {
		return nil, errMissingEmailColumn
	}

	byEmail := make(map[string]statex.Profile)
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read record: %w", err)
		}
		profile := make(statex.Profile, len(header))
		for i, value := range record {
			if i < len(header) {
				profile[header[i]] = strings.TrimSpace(value)
			}
		}
		email := strings.ToLower(profile["email"])
		if email == "" {
			continue
		}
		byEmail[email] = profile
	}
	return &CSVStore{byEmail: byEmail}, nil
}

func (s *CSVStore) Lookup(ctx context.Context, email string) (statex.Profile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	profile, ok := s.byEmail[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return nil, fmt.Errorf("%w: %s", contractx.ErrProfileNotFound, email)
	}
	// Callers may mutate the result; hand out a copy.
	dup := make(statex.Profile, len(profile))
	for k, v := range profile {
		dup[k] = v
	}
	return dup, nil
}
