package tables

import (
	"github.com/JonMunkholm/facilitytables/internal/core"
	"github.com/JonMunkholm/facilitytables/internal/schema"
)

func init() {
	registerLandInfo()
}

func registerLandInfo() {
	core.Register(core.TableDefinition{
		Info: core.TableInfo{
			Key:         "land_info",
			Group:       GroupLand,
			Label:       "土地情報",
			Description: "敷地の地番・地目・面積・権利関係",
		},
		Defaults: func() schema.TableConfig {
			return schema.TableConfig{
				Columns: []schema.ColumnSpec{
					{Key: "parcel_group", Label: "区画", Type: schema.TypeText, RowspanGroup: true},
					{Key: "lot_number", Label: "地番", Type: schema.TypeText, Required: true},
					{Key: "land_category", Label: "地目", Type: schema.TypeSelect, Options: map[string]string{
						"residential": "宅地",
						"field":       "畑",
						"forest":      "山林",
						"misc":        "雑種地",
					}},
					{Key: "area", Label: "地積", Type: schema.TypeNumber, Decimals: 2, Unit: "㎡"},
					{Key: "ownership", Label: "権利", Type: schema.TypeSelect, Options: map[string]string{
						"owned":  "所有",
						"leased": "借地",
					}},
					{Key: "lessor", Label: "貸主", Type: schema.TypeText,
						ShowCond: &schema.ShowCondition{Type: schema.CondDataEquals, Value: "leased"}},
					{Key: "lease_period", Label: "契約期間", Type: schema.TypeDateRange,
						ShowCond: &schema.ShowCondition{Type: schema.CondDataEquals, Value: "leased"}},
					{Key: "annual_rent", Label: "年間賃料", Type: schema.TypeNumber, Unit: "円",
						ShowCond: &schema.ShowCondition{Type: schema.CondHasData}},
				},
				Layout: schema.LayoutSpec{
					Type:                 schema.LayoutGroupedRows,
					ShowHeaders:          true,
					ResponsiveBreakpoint: "md",
				},
				Styling: schema.StyleSpec{
					TableClass:  "table table-bordered land-table",
					HeaderClass: "table-light",
					EmptyClass:  "text-muted",
				},
				Features: schema.FeatureFlags{CellMerge: true, AutoWidth: true},
				Merge: []schema.MergeRule{
					{Kind: schema.MergeComplex, Columns: []string{"parcel_group"}},
				},
			}
		},
	})
}
