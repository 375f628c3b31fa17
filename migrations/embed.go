// Package migrations embeds the catalog schema migration units.
package migrations

import (
	"embed"

	"github.com/p4market/catalogdb/internal/verify"
)

// Dir is the directory inside FS holding the SQL units
const Dir = "sql"

// FS holds the versioned catalog SQL units
//
//go:embed sql/*.sql
var FS embed.FS

// ExpectedTables lists the tables the catalog schema is expected to hold
// once every unit is applied.
func ExpectedTables() []verify.TableSpec {
	return []verify.TableSpec{
		{Name: "vendor", Columns: []string{"id", "name", "status", "created_at", "updated_at"}},
		{Name: "product", Columns: []string{"id", "name", "slug", "sku", "vendor_id", "status", "base_price", "created_at", "updated_at"}},
		{Name: "product_attribute", Columns: []string{"id", "name", "display_name", "attribute_type"}},
		{Name: "product_attribute_value", Columns: []string{"id", "product_id", "attribute_id"}},
		{Name: "media_asset", Columns: []string{"id", "name", "filename", "file_path", "media_type"}},
		{Name: "product_media", Columns: []string{"id", "product_id", "media_asset_id", "sort_order"}},
	}
}
