package tables

import (
	"github.com/JonMunkholm/facilitytables/internal/core"
	"github.com/JonMunkholm/facilitytables/internal/schema"
)

func init() {
	registerBasicInfo()
	registerContactInfo()
	registerBuildingInfo()
}

func registerBasicInfo() {
	core.Register(core.TableDefinition{
		Info: core.TableInfo{
			Key:         "basic_info",
			Group:       GroupFacility,
			Label:       "基本情報",
			Description: "施設の名称・種別・所在地",
		},
		Defaults: func() schema.TableConfig {
			return schema.TableConfig{
				Columns: []schema.ColumnSpec{
					{Key: "facility_name", Label: "施設名", Type: schema.TypeText, Required: true, Width: 30},
					{Key: "facility_kana", Label: "施設名（カナ）", Type: schema.TypeText, Width: 30},
					{Key: "facility_type", Label: "施設種別", Type: schema.TypeSelect, Required: true, Options: map[string]string{
						"nursing_home":  "特別養護老人ホーム",
						"group_home":    "グループホーム",
						"day_service":   "デイサービス",
						"home_care":     "訪問介護",
						"paid_nursing":  "介護付有料老人ホーム",
						"serviced_home": "サービス付き高齢者向け住宅",
					}},
					{Key: "postal_code", Label: "郵便番号", Type: schema.TypeText, Width: 10},
					{Key: "address", Label: "所在地", Type: schema.TypeText, Required: true, MaxLength: 120},
					{Key: "opened_on", Label: "開設日", Type: schema.TypeDate},
					{Key: "capacity", Label: "定員", Type: schema.TypeNumber, Unit: "名"},
					{Key: "website", Label: "ホームページ", Type: schema.TypeURL,
						ShowCond: &schema.ShowCondition{Type: schema.CondHasData}},
				},
				Layout: schema.LayoutSpec{
					Type:                 schema.LayoutKeyValuePairs,
					ShowHeaders:          false,
					ResponsiveBreakpoint: "md",
					ColumnsPerRow:        2,
				},
				Styling: schema.StyleSpec{
					TableClass:  "table table-bordered facility-basic",
					HeaderClass: "table-light",
					EmptyClass:  "text-muted",
				},
				Features: schema.FeatureFlags{Comments: true, Export: true},
			}
		},
	})
}

func registerContactInfo() {
	core.Register(core.TableDefinition{
		Info: core.TableInfo{
			Key:         "contact_info",
			Group:       GroupFacility,
			Label:       "連絡先",
			Description: "代表電話・FAX・メール・担当者",
		},
		Defaults: func() schema.TableConfig {
			return schema.TableConfig{
				Columns: []schema.ColumnSpec{
					{Key: "phone", Label: "電話番号", Type: schema.TypePhone, Required: true},
					{Key: "fax", Label: "FAX番号", Type: schema.TypePhone,
						ShowCond: &schema.ShowCondition{Type: schema.CondDataNotEmpty}},
					{Key: "email", Label: "メールアドレス", Type: schema.TypeEmail},
					{Key: "contact_person", Label: "担当者", Type: schema.TypeText},
					{Key: "contact_hours", Label: "受付時間", Type: schema.TypeText},
				},
				Layout: schema.LayoutSpec{
					Type:                 schema.LayoutKeyValuePairs,
					ResponsiveBreakpoint: "sm",
					ColumnsPerRow:        1,
				},
				Styling: schema.StyleSpec{
					TableClass: "table table-sm facility-contact",
					EmptyClass: "text-muted",
				},
				Features: schema.FeatureFlags{Comments: true},
			}
		},
	})
}

func registerBuildingInfo() {
	core.Register(core.TableDefinition{
		Info: core.TableInfo{
			Key:         "building_info",
			Group:       GroupFacility,
			Label:       "建物情報",
			Description: "構造・階数・延床面積・竣工",
		},
		Defaults: func() schema.TableConfig {
			return schema.TableConfig{
				Columns: []schema.ColumnSpec{
					{Key: "building_name", Label: "建物名", Type: schema.TypeText, Required: true},
					{Key: "structure", Label: "構造", Type: schema.TypeSelect, Options: map[string]string{
						"rc":   "鉄筋コンクリート造",
						"src":  "鉄骨鉄筋コンクリート造",
						"s":    "鉄骨造",
						"wood": "木造",
					}},
					{Key: "floors_above", Label: "地上", Type: schema.TypeNumber, Unit: "階",
						HeaderLevel: 2, HeaderGroup: "階数"},
					{Key: "floors_below", Label: "地下", Type: schema.TypeNumber, Unit: "階",
						HeaderLevel: 2, HeaderGroup: "階数"},
					{Key: "floor_area", Label: "延床面積", Type: schema.TypeNumber, Decimals: 2, Unit: "㎡"},
					{Key: "completed_on", Label: "竣工日", Type: schema.TypeDate},
					{Key: "seismic_retrofit", Label: "耐震改修", Type: schema.TypeSelect, Options: map[string]string{
						"done":     "実施済み",
						"planned":  "予定あり",
						"not_need": "不要",
					}, ShowCond: &schema.ShowCondition{Type: schema.CondFieldExists, Field: "seismic_retrofit"}},
				},
				Layout: schema.LayoutSpec{
					Type:                 schema.LayoutStandardTable,
					ShowHeaders:          true,
					HierarchicalHeaders:  true,
					ResponsiveBreakpoint: "lg",
				},
				Styling: schema.StyleSpec{
					TableClass:  "table table-striped facility-building",
					HeaderClass: "table-light",
					EmptyClass:  "text-muted",
				},
				Features: schema.FeatureFlags{AutoWidth: true, Sorting: true, Export: true},
			}
		},
	})
}
