package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/firestore"
	"github.com/shopspring/decimal"

	domain "github.com/timi-123/shop-admin-sub000/internal/domain"
	pfirestore "github.com/timi-123/shop-admin-sub000/internal/platform/firestore"
	"github.com/timi-123/shop-admin-sub000/internal/repositories"
)

const (
	productsCollection = "products"
	vendorsCollection  = "vendors"
)

// CatalogRepository reads product price and ownership from the products collection.
type CatalogRepository struct {
	provider *pfirestore.Provider
}

func NewCatalogRepository(provider *pfirestore.Provider) (*CatalogRepository, error) {
	if provider == nil {
		return nil, errors.New("catalog repository requires firestore provider")
	}
	return &CatalogRepository{provider: provider}, nil
}

var _ repositories.CatalogReader = (*CatalogRepository)(nil)

var errMissingPrice = errors.New("product has no price")

// ResolveProducts fetches the requested products in one batch read. Missing products, and
// products without a price, are omitted so checkout treats them as unresolved.
func (r *CatalogRepository) ResolveProducts(ctx context.Context, productIDs []string) (map[string]domain.ProductSnapshot, error) {
	if r == nil || r.provider == nil {
		return nil, errors.New("catalog repository not initialised")
	}
	snaps, err := getAll(ctx, r.provider, productsCollection, productIDs, "catalog.resolve")
	if err != nil {
		return nil, err
	}

	out := make(map[string]domain.ProductSnapshot, len(snaps))
	for _, snap := range snaps {
		var doc productDocument
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("decode product %s: %w", snap.Ref.ID, err)
		}
		price, err := doc.price()
		if errors.Is(err, errMissingPrice) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("decode product %s: %w", snap.Ref.ID, err)
		}
		out[snap.Ref.ID] = domain.ProductSnapshot{
			ProductID: snap.Ref.ID,
			Name:      doc.Name,
			VendorID:  strings.TrimSpace(doc.VendorID),
			Price:     price,
		}
	}
	return out, nil
}

type productDocument struct {
	Name     string `firestore:"name"`
	VendorID string `firestore:"vendorId"`
	Price    any    `firestore:"price"`
}

// price accepts numeric or string values; catalog tooling writes both.
func (d productDocument) price() (decimal.Decimal, error) {
	switch v := d.Price.(type) {
	case nil:
		return decimal.Zero, errMissingPrice
	case int64:
		return decimal.NewFromInt(v), nil
	case float64:
		return decimal.NewFromFloat(v), nil
	case string:
		if strings.TrimSpace(v) == "" {
			return decimal.Zero, errMissingPrice
		}
		return decimal.NewFromString(strings.TrimSpace(v))
	default:
		return decimal.Zero, fmt.Errorf("unsupported price type %T", v)
	}
}

// VendorRepository resolves vendor display names from the vendors collection.
type VendorRepository struct {
	provider *pfirestore.Provider
}

func NewVendorRepository(provider *pfirestore.Provider) (*VendorRepository, error) {
	if provider == nil {
		return nil, errors.New("vendor repository requires firestore provider")
	}
	return &VendorRepository{provider: provider}, nil
}

var _ repositories.VendorDirectory = (*VendorRepository)(nil)

func (r *VendorRepository) DisplayNames(ctx context.Context, vendorIDs []string) (map[string]string, error) {
	if r == nil || r.provider == nil {
		return nil, errors.New("vendor repository not initialised")
	}
	snaps, err := getAll(ctx, r.provider, vendorsCollection, vendorIDs, "vendors.names")
	if err != nil {
		return nil, err
	}

	out := make(map[string]string, len(snaps))
	for _, snap := range snaps {
		var doc vendorDocument
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("decode vendor %s: %w", snap.Ref.ID, err)
		}
		if name := doc.name(); name != "" {
			out[snap.Ref.ID] = name
		}
	}
	return out, nil
}

type vendorDocument struct {
	DisplayName  string `firestore:"displayName"`
	BusinessName string `firestore:"businessName"`
}

func (d vendorDocument) name() string {
	if name := strings.TrimSpace(d.DisplayName); name != "" {
		return name
	}
	return strings.TrimSpace(d.BusinessName)
}

// getAll batch-reads documents by id and returns only the ones that exist.
func getAll(ctx context.Context, provider *pfirestore.Provider, collection string, ids []string, op string) ([]*firestore.DocumentSnapshot, error) {
	client, err := provider.Client(ctx)
	if err != nil {
		return nil, pfirestore.WrapError(op, err)
	}

	seen := make(map[string]struct{}, len(ids))
	refs := make([]*firestore.DocumentRef, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || strings.Contains(id, "/") {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		refs = append(refs, client.Collection(collection).Doc(id))
	}
	if len(refs) == 0 {
		return nil, nil
	}

	snaps, err := client.GetAll(ctx, refs)
	if err != nil {
		return nil, pfirestore.WrapError(op, err)
	}
	out := make([]*firestore.DocumentSnapshot, 0, len(snaps))
	for _, snap := range snaps {
		if snap != nil && snap.Exists() {
			out = append(out, snap)
		}
	}
	return out, nil
}
