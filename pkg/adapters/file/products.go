package file

import (
	"fmt"
	"os"
	"strings"

	"github.com/aretw0/comanda/pkg/domain"
	"gopkg.in/yaml.v3"
)

type productsDocument struct {
	Products []domain.Product `yaml:"products"`
}

// ReadProducts reads a catalog file. The document is either a list of products
// or a mapping with a "products" list; JSON is accepted as YAML.
func ReadProducts(path string) ([]domain.Product, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	var products []domain.Product
	if strings.HasPrefix(strings.TrimSpace(string(data)), "-") || strings.HasPrefix(strings.TrimSpace(string(data)), "[") {
		err = yaml.Unmarshal(data, &products)
	} else {
		var doc productsDocument
		err = yaml.Unmarshal(data, &doc)
		products = doc.Products
	}
	if err != nil {
		return nil, fmt.Errorf("decode catalog %s: %w", path, err)
	}

	seen := make(map[string]bool, len(products))
	for i, p := range products {
		if p.ID == "" || p.Name == "" {
			return nil, fmt.Errorf("catalog %s: product %d needs an id and a name", path, i+1)
		}
		if seen[p.ID] {
			return nil, fmt.Errorf("catalog %s: duplicate product id %q", path, p.ID)
		}
		seen[p.ID] = true
	}
	return products, nil
}
