package identity

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"roombook/pkg/logger"
	"roombook/pkg/model"
	"roombook/pkg/sanitizer"
)

// UnknownOwnerID is recorded as the owner id when the booking user is not on
// the roster.
const UnknownOwnerID = "N/A"

// Roster is the read-only table of known people, keyed by identifier. It is
// built once at startup and never modified afterwards.
type Roster struct {
	byID map[string]model.Identity
}

func NewRoster(identities ...model.Identity) *Roster {
	r := &Roster{byID: make(map[string]model.Identity, len(identities))}
	for _, id := range identities {
		key := strings.TrimSpace(id.ID)
		if key == "" {
			continue
		}
		r.byID[key] = model.Identity{ID: key, Name: sanitizer.NormalizeUpper(id.Name)}
	}
	return r
}

// LoadFile reads a roster file. A missing file yields an empty roster.
func LoadFile(path string, log *logger.Logger) (*Roster, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Warn("Roster file not found, starting with an empty roster", "path", path)
			return NewRoster(), nil
		}
		return nil, fmt.Errorf("failed to open roster %s: %w", path, err)
	}
	defer f.Close()

	roster, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read roster %s: %w", path, err)
	}
	log.Info("Roster loaded", "path", path, "identities", roster.Len())
	return roster, nil
}

// Parse reads "id,username,password" lines. Lines with any other shape are
// skipped and the password column is never kept.
func Parse(r io.Reader) (*Roster, error) {
	var identities []model.Identity
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		parts := strings.Split(strings.TrimSpace(scanner.Text()), ",")
		if len(parts) != 3 {
			continue
		}
		identities = append(identities, model.Identity{ID: parts[0], Name: parts[1]})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return NewRoster(identities...), nil
}

func (r *Roster) Lookup(id string) (model.Identity, bool) {
	if r == nil {
		return model.Identity{}, false
	}
	identity, ok := r.byID[strings.TrimSpace(id)]
	return identity, ok
}

// Resolve finds the identity a signed-in user key refers to, by display name
// ignoring case first and then by identifier.
func (r *Roster) Resolve(userKey string) (model.Identity, bool) {
	key := strings.TrimSpace(userKey)
	if r == nil || key == "" {
		return model.Identity{}, false
	}
	for _, id := range r.sortedIDs() {
		if strings.EqualFold(r.byID[id].Name, key) {
			return r.byID[id], true
		}
	}
	return r.Lookup(key)
}

// Owner returns the owner identity for userKey, falling back to
// UnknownOwnerID and the upper-cased key when the user is not on the roster.
func (r *Roster) Owner(userKey string) model.Identity {
	if identity, ok := r.Resolve(userKey); ok {
		return identity
	}
	return model.Identity{ID: UnknownOwnerID, Name: sanitizer.NormalizeUpper(userKey)}
}

func (r *Roster) Len() int {
	if r == nil {
		return 0
	}
	return len(r.byID)
}

func (r *Roster) sortedIDs() []string {
	ids := make([]string, 0, len(r.byID))
	for id := range r.byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
