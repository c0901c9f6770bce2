package tables

import (
	"github.com/JonMunkholm/facilitytables/internal/core"
	"github.com/JonMunkholm/facilitytables/internal/schema"
)

func init() {
	registerServiceInfo()
	registerRepairHistory()
}

func registerServiceInfo() {
	core.Register(core.TableDefinition{
		Info: core.TableInfo{
			Key:         "service_info",
			Group:       GroupService,
			Label:       "サービス情報",
			Description: "提供サービスと営業日・時間",
		},
		Defaults: func() schema.TableConfig {
			return schema.TableConfig{
				Columns: []schema.ColumnSpec{
					{Key: "service_category", Label: "サービス区分", Type: schema.TypeText, RowspanGroup: true, Width: 18},
					{Key: "service_name", Label: "サービス名", Type: schema.TypeText, Required: true},
					{Key: "business_days", Label: "営業日", Type: schema.TypeText},
					{Key: "hours_open", Label: "開始", Type: schema.TypeText, HeaderLevel: 2, HeaderGroup: "営業時間"},
					{Key: "hours_close", Label: "終了", Type: schema.TypeText, HeaderLevel: 2, HeaderGroup: "営業時間"},
					{Key: "capacity", Label: "定員", Type: schema.TypeNumber, Unit: "名"},
					{Key: "fee", Label: "利用料", Type: schema.TypeNumber, Unit: "円",
						ShowCond: &schema.ShowCondition{Type: schema.CondHasData}},
					{Key: "note", Label: "備考", Type: schema.TypeText, MaxLength: 60,
						ShowCond: &schema.ShowCondition{Type: schema.CondDataNotEmpty}},
				},
				Layout: schema.LayoutSpec{
					Type:                 schema.LayoutServiceTable,
					ShowHeaders:          true,
					HierarchicalHeaders:  true,
					ResponsiveBreakpoint: "md",
				},
				Styling: schema.StyleSpec{
					TableClass:  "table table-bordered service-table",
					HeaderClass: "table-primary",
					CellClass:   "align-middle",
					EmptyClass:  "text-muted",
				},
				Features: schema.FeatureFlags{CellMerge: true, Sorting: true},
				Merge: []schema.MergeRule{
					{Kind: schema.MergeHorizontal, Columns: []string{"hours_open", "hours_close"}, Separator: "〜"},
					{Kind: schema.MergeVertical, Columns: []string{"service_category"}},
				},
			}
		},
	})
}

func registerRepairHistory() {
	core.Register(core.TableDefinition{
		Info: core.TableInfo{
			Key:         "repair_history",
			Group:       GroupService,
			Label:       "修繕履歴",
			Description: "修繕工事の期間・内容・費用",
		},
		Defaults: func() schema.TableConfig {
			return schema.TableConfig{
				Columns: []schema.ColumnSpec{
					{Key: "period", Label: "工期", Type: schema.TypeDateRange, Required: true},
					{Key: "work", Label: "工事内容", Type: schema.TypeText, Required: true, MaxLength: 80},
					{Key: "contractor", Label: "施工業者", Type: schema.TypeText},
					{Key: "cost", Label: "費用", Type: schema.TypeNumber, Unit: "円"},
					{Key: "status", Label: "状況", Type: schema.TypeSelect, Options: map[string]string{
						"planned":     "予定",
						"in_progress": "施工中",
						"done":        "完了",
					}},
				},
				Layout: schema.LayoutSpec{
					Type:                 schema.LayoutStandardTable,
					ShowHeaders:          true,
					ResponsiveBreakpoint: "lg",
				},
				Styling: schema.StyleSpec{
					TableClass: "table table-hover repair-history",
					EmptyClass: "text-muted",
				},
				Features: schema.FeatureFlags{
					DynamicColumns: true,
					AutoWidth:      true,
					Sorting:        true,
					Filtering:      true,
					Export:         true,
				},
			}
		},
	})
}
