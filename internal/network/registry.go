package network

import (
	"fmt"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/ethereum/go-ethereum/common"
	"github.com/go-playground/validator/v10"

	payerr "github.com/mrz1836/chainpay/pkg/errors"
)

// maxSuggestionDistance bounds how far a typo may be from a known network.
const maxSuggestionDistance = 3

// Registry is an immutable set of descriptors.
type Registry struct {
	byID   map[uint64]Descriptor
	bySlug map[string]uint64
	sorted []Descriptor
}

// NewRegistry validates descriptors and indexes them.
// An empty ChainIDHex is derived from ChainID.
func NewRegistry(descs ...Descriptor) (*Registry, error) {
	validate := validator.New(validator.WithRequiredStructEnabled())

	r := &Registry{
		byID:   make(map[uint64]Descriptor, len(descs)),
		bySlug: make(map[string]uint64, len(descs)),
	}

	for _, d := range descs {
		if d.ChainIDHex == "" {
			d.ChainIDHex = ToHex(d.ChainID)
		}
		if err := validate.Struct(d); err != nil {
			return nil, payerr.WithDetails(payerr.WithCause(payerr.ErrConfigInvalid, err), map[string]string{
				"network": d.Slug,
			})
		}

		parsed, err := ParseHex(d.ChainIDHex)
		if err != nil || parsed != d.ChainID {
			return nil, payerr.WithDetails(payerr.ErrConfigInvalid, map[string]string{
				"network":  d.Slug,
				"chain_id": fmt.Sprintf("%d", d.ChainID),
				"hex":      d.ChainIDHex,
				"reason":   "hex and decimal chain ids disagree",
			})
		}
		d.ChainIDHex = ToHex(d.ChainID)

		if _, dup := r.byID[d.ChainID]; dup {
			return nil, payerr.WithDetails(payerr.ErrConfigInvalid, map[string]string{
				"chain_id": fmt.Sprintf("%d", d.ChainID),
				"reason":   "duplicate chain id",
			})
		}
		if _, dup := r.bySlug[d.Slug]; dup {
			return nil, payerr.WithDetails(payerr.ErrConfigInvalid, map[string]string{
				"network": d.Slug,
				"reason":  "duplicate network name",
			})
		}

		d.USDCAddress = normalize(d.USDCAddress)
		d.EscrowAddress = normalize(d.EscrowAddress)

		r.byID[d.ChainID] = d
		r.bySlug[d.Slug] = d.ChainID
		r.sorted = append(r.sorted, d)
	}

	sort.Slice(r.sorted, func(i, j int) bool {
		return r.sorted[i].ChainID < r.sorted[j].ChainID
	})

	return r, nil
}

// normalize maps the zero address to nil and copies the pointer target.
func normalize(addr *common.Address) *common.Address {
	if addr == nil || *addr == (common.Address{}) {
		return nil
	}
	cp := *addr
	return &cp
}

// ByChainID looks a descriptor up by decimal chain id.
func (r *Registry) ByChainID(id uint64) (Descriptor, bool) {
	d, ok := r.byID[id]
	return d, ok
}

// ByHex looks a descriptor up by hex chain id.
func (r *Registry) ByHex(hex string) (Descriptor, bool) {
	id, err := ParseHex(hex)
	if err != nil {
		return Descriptor{}, false
	}
	return r.ByChainID(id)
}

// ByName looks a descriptor up by slug, display name, or decimal/hex chain id.
func (r *Registry) ByName(name string) (Descriptor, error) {
	key := strings.ToLower(strings.TrimSpace(name))

	if id, ok := r.bySlug[key]; ok {
		return r.byID[id], nil
	}
	for _, d := range r.sorted {
		if strings.EqualFold(d.Name, key) || fmt.Sprintf("%d", d.ChainID) == key {
			return d, nil
		}
	}
	if d, ok := r.ByHex(key); ok {
		return d, nil
	}

	err := payerr.WithDetails(payerr.ErrUnsupportedNetwork, map[string]string{"network": name})
	if suggestion := r.suggest(key); suggestion != "" {
		err = payerr.WithSuggestion(err, fmt.Sprintf("did you mean %q?", suggestion))
	} else {
		err = payerr.WithSuggestion(err, "supported networks: "+strings.Join(r.Slugs(), ", "))
	}
	return Descriptor{}, err
}

// suggest returns the closest slug within maxSuggestionDistance edits.
func (r *Registry) suggest(key string) string {
	best := ""
	bestDist := maxSuggestionDistance + 1
	for _, d := range r.sorted {
		dist := levenshtein.ComputeDistance(key, d.Slug)
		if dist < bestDist {
			best, bestDist = d.Slug, dist
		}
	}
	return best
}

// All returns every descriptor ordered by chain id.
func (r *Registry) All() []Descriptor {
	out := make([]Descriptor, len(r.sorted))
	copy(out, r.sorted)
	return out
}

// Slugs returns the short names ordered by chain id.
func (r *Registry) Slugs() []string {
	out := make([]string, 0, len(r.sorted))
	for _, d := range r.sorted {
		out = append(out, d.Slug)
	}
	return out
}

// Len returns the number of networks.
func (r *Registry) Len() int {
	return len(r.sorted)
}
