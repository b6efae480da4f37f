// Package table flattens extraction results into the animation and asset row
// sets and writes them out.
package table

import (
	"github.com/gnemet/SlideGraph/internal/asset"
)

var (
	AnimationHeader = []string{"PackageName", "PartName", "TargetId", "Category", "Property", "Value"}
	AssetHeader     = []string{"PackageName", "PartName", "AssetId", "ParentId", "Name", "Type", "Value"}
)

// AnimationTable names the animation row set.
const AnimationTable = "animation"

// AssetTables lists the asset tables in output order.
func AssetTables() []asset.Table {
	return []asset.Table{asset.TableSlides, asset.TablePresentation, asset.TableLayouts}
}

// AnimationRow is a behavior or a transition tagged with its source.
type AnimationRow struct {
	PackageName string
	PartName    string
	TargetID    string
	Category    string
	Property    asset.Value
	Value       asset.Value
}

func (r AnimationRow) Strings() []string {
	return []string{r.PackageName, r.PartName, r.TargetID, r.Category, r.Property.String(), r.Value.String()}
}

// AssetRow is an asset record tagged with its source.
type AssetRow struct {
	PackageName string
	PartName    string
	asset.Record
}

func (r AssetRow) Strings() []string {
	return []string{r.PackageName, r.PartName, r.ID, r.ParentID, r.Name, string(r.Type), r.Value.String()}
}

// Tables holds the rows of one or more packages in discovery order.
type Tables struct {
	Animations []AnimationRow
	Assets     map[asset.Table][]AssetRow
}

// FromPackage returns the rows of a single package.
func FromPackage(res *asset.PackageResult) *Tables {
	t := &Tables{}
	for _, part := range res.Parts {
		t.Append(res.Name, part)
	}
	return t
}

// Append adds one part's behaviors, transitions and assets. Transitions follow
// the behaviors of the same part.
func (t *Tables) Append(pkg string, part asset.PartResult) {
	for _, b := range part.Behaviors {
		t.Animations = append(t.Animations, AnimationRow{
			PackageName: pkg,
			PartName:    part.Name,
			TargetID:    b.TargetID,
			Category:    b.Category,
			Property:    b.Property,
			Value:       b.Value,
		})
	}
	for _, tr := range part.Transitions {
		t.Animations = append(t.Animations, AnimationRow{
			PackageName: pkg,
			PartName:    part.Name,
			TargetID:    asset.NoneValue,
			Category:    asset.CategoryTransition,
			Property:    tr.Type,
			Value:       tr.Duration,
		})
	}

	if t.Assets == nil {
		t.Assets = make(map[asset.Table][]AssetRow)
	}
	for _, r := range part.Assets {
		t.Assets[part.Table] = append(t.Assets[part.Table], AssetRow{PackageName: pkg, PartName: part.Name, Record: r})
	}
}

// Len returns the row count of every table, keyed by table name.
func (t *Tables) Len() map[string]int {
	out := map[string]int{AnimationTable: len(t.Animations)}
	for _, name := range AssetTables() {
		out[string(name)] = len(t.Assets[name])
	}
	return out
}
