package patent

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/kailas-cloud/patsim/internal/db"
	"github.com/kailas-cloud/patsim/internal/domain"
	"github.com/kailas-cloud/patsim/internal/domain/candidate"
	"github.com/kailas-cloud/patsim/internal/domain/fingerprint"
)

// fieldFingerprint holds the little-endian float64 fingerprint in a record hash.
const fieldFingerprint = "fingerprint"

const defaultFetchBatch = 1000

// store is the consumer interface for patent records (ISP).
type store interface {
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	SUnion(ctx context.Context, keys ...string) ([]string, error)
	SAddMulti(ctx context.Context, items []db.SetAddItem) error
}

// Repo stores patent records as hashes and keeps one set per
// (country, classification prefix) for candidate selection.
//
// Keys:
//
//	{prefix}pub:{publication_number}      record hash
//	{prefix}prefix:{country}:{code_prefix} set of publication numbers
type Repo struct {
	store        store
	keyPrefix    string
	maxPrefixLen int
	fetchBatch   int
}

// New creates a patent repository. maxPrefixLen is the longest prefix the
// index sets are maintained for.
func New(s store, keyPrefix string, maxPrefixLen int) *Repo {
	return &Repo{
		store:        s,
		keyPrefix:    keyPrefix,
		maxPrefixLen: maxPrefixLen,
		fetchBatch:   defaultFetchBatch,
	}
}

// Reference returns the fingerprint of a stored publication.
func (r *Repo) Reference(ctx context.Context, publicationNumber, country string) (fingerprint.Fingerprint, error) {
	key := r.pubKey(publicationNumber)
	fields, err := r.store.HGetAll(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("hgetall %s: %w", key, err)
	}
	if len(fields) == 0 || fields[candidate.FieldCountryCode] != country {
		return nil, fmt.Errorf("%w: %s", domain.ErrReferenceNotFound, publicationNumber)
	}
	raw := fields[fieldFingerprint]
	if raw == "" {
		return nil, fmt.Errorf("%w: %s has no fingerprint", domain.ErrReferenceNotFound, publicationNumber)
	}
	fp, err := fingerprint.FromBytes([]byte(raw))
	if err != nil {
		return nil, &domain.FingerprintError{Reason: domain.ReasonDimension, Detail: err.Error()}
	}
	return fp, nil
}

// Candidates returns records indexed under any of the predicate's prefixes
// for the query country. Publication numbers are visited in ascending order
// and truncated to q.Limit before the records are fetched.
func (r *Repo) Candidates(ctx context.Context, q candidate.Query) ([]candidate.Patent, error) {
	if q.Predicate.IsEmpty() {
		return nil, nil
	}
	if q.Predicate.PrefixLen() > r.maxPrefixLen {
		return nil, fmt.Errorf("%w: %d exceeds indexed maximum %d",
			domain.ErrInvalidPrefixLength, q.Predicate.PrefixLen(), r.maxPrefixLen)
	}

	prefixes := q.Predicate.Prefixes()
	setKeys := make([]string, len(prefixes))
	for i, p := range prefixes {
		setKeys[i] = r.prefixKey(q.Country, p)
	}

	ids, err := r.store.SUnion(ctx, setKeys...)
	if err != nil {
		return nil, fmt.Errorf("sunion %d prefixes: %w", len(setKeys), err)
	}
	sort.Strings(ids)
	if q.Limit > 0 && len(ids) > q.Limit {
		ids = ids[:q.Limit]
	}

	out := make([]candidate.Patent, 0, len(ids))
	for start := 0; start < len(ids); start += r.fetchBatch {
		end := min(start+r.fetchBatch, len(ids))
		keys := make([]string, end-start)
		for i, id := range ids[start:end] {
			keys[i] = r.pubKey(id)
		}

		hashes, err := r.store.HGetAllMulti(ctx, keys)
		if err != nil {
			return nil, fmt.Errorf("fetch candidates: %w", err)
		}
		for i, fields := range hashes {
			if p, ok := toPatent(ids[start+i], fields); ok {
				out = append(out, p)
			}
		}
	}
	return out, nil
}

// Import writes records and their prefix index entries. Records without a
// publication number or fingerprint are rejected.
func (r *Repo) Import(ctx context.Context, patents []candidate.Patent) (int, error) {
	if len(patents) == 0 {
		return 0, nil
	}

	hashes := make([]db.HashSetItem, 0, len(patents))
	members := make(map[string][]string)
	for _, p := range patents {
		id := p.Record.ID()
		if id == "" {
			return 0, errors.New("import: record without publication number")
		}
		if len(p.Fingerprint) == 0 {
			return 0, fmt.Errorf("import %s: empty fingerprint", id)
		}

		fields := p.Record.Fields()
		fields[fieldFingerprint] = string(p.Fingerprint.Bytes())
		hashes = append(hashes, db.HashSetItem{Key: r.pubKey(id), Fields: fields})

		for _, key := range r.indexKeys(p.Record) {
			members[key] = append(members[key], id)
		}
	}

	if err := r.store.HSetMulti(ctx, hashes); err != nil {
		return 0, fmt.Errorf("store records: %w", err)
	}

	keys := make([]string, 0, len(members))
	for k := range members {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	sets := make([]db.SetAddItem, len(keys))
	for i, k := range keys {
		sets[i] = db.SetAddItem{Key: k, Members: members[k]}
	}
	if err := r.store.SAddMulti(ctx, sets); err != nil {
		return 0, fmt.Errorf("store prefix index: %w", err)
	}

	return len(patents), nil
}

// indexKeys returns every prefix set the record belongs to.
func (r *Repo) indexKeys(rec candidate.Record) []string {
	seen := make(map[string]struct{})
	var keys []string
	for _, code := range rec.Codes() {
		runes := []rune(code)
		for n := 1; n <= r.maxPrefixLen && n <= len(runes); n++ {
			key := r.prefixKey(rec.CountryCode(), string(runes[:n]))
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			keys = append(keys, key)
		}
	}
	return keys
}

func (r *Repo) pubKey(id string) string {
	return r.keyPrefix + "pub:" + id
}

func (r *Repo) prefixKey(country, prefix string) string {
	return r.keyPrefix + "prefix:" + country + ":" + prefix
}

// toPatent converts a record hash. Stale index entries (missing hash) and
// records without a fingerprint are skipped; malformed fingerprints are kept
// as empty so the ranker counts them.
func toPatent(id string, fields map[string]string) (candidate.Patent, bool) {
	raw, ok := fields[fieldFingerprint]
	if !ok || raw == "" {
		return candidate.Patent{}, false
	}
	delete(fields, fieldFingerprint)
	fields[candidate.FieldPublicationNumber] = id

	fp, err := fingerprint.FromBytes([]byte(raw))
	if err != nil {
		fp = nil
	}
	return candidate.Patent{Record: candidate.NewRecord(fields), Fingerprint: fp}, true
}
