package items

import (
	"fmt"
	"strings"
)

type CatalogEntry struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	LocalizedName string   `json:"localized_name"`
	Category      Category `json:"category"`
}

type CatalogGroup struct {
	Category      Category       `json:"category"`
	Name          string         `json:"name"`
	LocalizedName string         `json:"localized_name"`
	Items         []CatalogEntry `json:"items"`
}

var catalog = []CatalogGroup{
	{
		Category: LargeFurniture, Name: "Large Furniture", LocalizedName: "大型家具",
		Items: []CatalogEntry{
			{ID: "bed_single", Name: "Single Bed", LocalizedName: "シングルベッド"},
			{ID: "bed_semi_double", Name: "Semi-Double Bed", LocalizedName: "セミダブルベッド"},
			{ID: "bed_double", Name: "Double Bed", LocalizedName: "ダブルベッド"},
			{ID: "sofa_2seat", Name: "2-Seater Sofa", LocalizedName: "2人掛けソファー"},
			{ID: "sofa_3seat", Name: "3-Seater Sofa", LocalizedName: "3人掛けソファー"},
			{ID: "dining_table", Name: "Dining Table", LocalizedName: "ダイニングテーブル"},
			{ID: "desk", Name: "Desk", LocalizedName: "デスク"},
			{ID: "bookshelf", Name: "Bookshelf", LocalizedName: "本棚"},
			{ID: "wardrobe", Name: "Wardrobe", LocalizedName: "タンス・ワードローブ"},
			{ID: "chest", Name: "Chest of Drawers", LocalizedName: "チェスト"},
			{ID: "storage_case", Name: "Storage Case", LocalizedName: "衣装ケース"},
			{ID: "tv_stand", Name: "TV Stand", LocalizedName: "テレビ台"},
			{ID: "shoe_rack", Name: "Shoe Rack", LocalizedName: "下駄箱"},
			{ID: "kotatsu", Name: "Kotatsu Table", LocalizedName: "こたつ"},
			{ID: "dresser", Name: "Dresser", LocalizedName: "ドレッサー"},
		},
	},
	{
		Category: Appliances, Name: "Home Appliances", LocalizedName: "家電製品",
		Items: []CatalogEntry{
			{ID: "fridge_small", Name: "Refrigerator (Small)", LocalizedName: "冷蔵庫（小型）"},
			{ID: "fridge_medium", Name: "Refrigerator (Medium)", LocalizedName: "冷蔵庫（中型）"},
			{ID: "fridge_large", Name: "Refrigerator (Large)", LocalizedName: "冷蔵庫（大型）"},
			{ID: "washing_machine", Name: "Washing Machine", LocalizedName: "洗濯機"},
			{ID: "washer_dryer", Name: "Washer-Dryer Combo", LocalizedName: "ドラム式洗濯乾燥機"},
			{ID: "tv_small", Name: "TV (~32\")", LocalizedName: "テレビ（〜32型）"},
			{ID: "tv_medium", Name: "TV (40-50\")", LocalizedName: "テレビ（40〜50型）"},
			{ID: "tv_large", Name: "TV (55\"+)", LocalizedName: "テレビ（55型以上）"},
			{ID: "air_conditioner", Name: "Air Conditioner", LocalizedName: "エアコン"},
			{ID: "microwave", Name: "Microwave", LocalizedName: "電子レンジ"},
			{ID: "rice_cooker", Name: "Rice Cooker", LocalizedName: "炊飯器"},
			{ID: "vacuum", Name: "Vacuum Cleaner", LocalizedName: "掃除機"},
			{ID: "fan", Name: "Fan", LocalizedName: "扇風機"},
			{ID: "heater", Name: "Heater", LocalizedName: "ヒーター・ストーブ"},
			{ID: "dehumidifier", Name: "Dehumidifier/Humidifier", LocalizedName: "除湿機・加湿器"},
			{ID: "pc_desktop", Name: "Desktop PC", LocalizedName: "デスクトップPC"},
			{ID: "printer", Name: "Printer", LocalizedName: "プリンター"},
		},
	},
	{
		Category: SmallItems, Name: "Small Items/Boxes", LocalizedName: "小物・段ボール",
		Items: []CatalogEntry{
			{ID: "box_small", Name: "Small Box", LocalizedName: "段ボール（小）"},
			{ID: "box_medium", Name: "Medium Box", LocalizedName: "段ボール（中）"},
			{ID: "box_large", Name: "Large Box", LocalizedName: "段ボール（大）"},
			{ID: "suitcase", Name: "Suitcase", LocalizedName: "スーツケース"},
			{ID: "futon", Name: "Futon Set", LocalizedName: "布団セット"},
			{ID: "clothes_bag", Name: "Clothes Bag", LocalizedName: "衣類バッグ"},
			{ID: "books_bundle", Name: "Books Bundle", LocalizedName: "本・書籍"},
			{ID: "kitchenware", Name: "Kitchenware", LocalizedName: "食器類"},
			{ID: "plant", Name: "Plant", LocalizedName: "観葉植物"},
			{ID: "bicycle", Name: "Bicycle", LocalizedName: "自転車"},
			{ID: "golf_bag", Name: "Golf Bag", LocalizedName: "ゴルフバッグ"},
			{ID: "ski_snowboard", Name: "Ski/Snowboard", LocalizedName: "スキー・スノーボード"},
		},
	},
}

var catalogIndex = func() map[string]CatalogEntry {
	idx := make(map[string]CatalogEntry)
	for _, g := range catalog {
		for _, e := range g.Items {
			e.Category = g.Category
			idx[e.ID] = e
		}
	}
	return idx
}()

// Catalog returns the selectable items grouped by category.
func Catalog() []CatalogGroup {
	out := make([]CatalogGroup, len(catalog))
	for i, g := range catalog {
		g.Items = append([]CatalogEntry(nil), g.Items...)
		for j := range g.Items {
			g.Items[j].Category = g.Category
		}
		out[i] = g
	}
	return out
}

func Lookup(id string) (CatalogEntry, bool) {
	e, ok := catalogIndex[id]
	return e, ok
}

// Search returns catalog entries whose id or either name contains q,
// case-insensitively, in catalog order.
func Search(q string) []CatalogEntry {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return nil
	}
	var out []CatalogEntry
	for _, g := range Catalog() {
		for _, e := range g.Items {
			if strings.Contains(strings.ToLower(e.Name), q) ||
				strings.Contains(e.LocalizedName, q) ||
				strings.Contains(e.ID, q) {
				out = append(out, e)
			}
		}
	}
	return out
}

type Selection struct {
	Items      []Item   `json:"items"`
	Errors     []string `json:"errors,omitempty"`
	TotalCount int      `json:"total_count"`
}

func (s Selection) Valid() bool { return len(s.Errors) == 0 }

// ValidateSelection normalizes user-picked items. Catalog ids are expanded to
// their catalog names and category; entries outside the catalog are kept as
// numbered custom items when they carry a name, and reported otherwise.
func ValidateSelection(picked []Item) Selection {
	var sel Selection
	for _, it := range picked {
		count := max(1, it.Count)
		if e, ok := Lookup(it.ID); ok {
			sel.Items = append(sel.Items, Item{
				ID:            e.ID,
				Name:          e.Name,
				LocalizedName: e.LocalizedName,
				Category:      e.Category,
				Count:         count,
				Note:          it.Note,
				SourceImageID: it.SourceImageID,
			})
			continue
		}

		name := strings.TrimSpace(it.Name)
		localized := strings.TrimSpace(it.LocalizedName)
		if name == "" && localized == "" {
			sel.Errors = append(sel.Errors, fmt.Sprintf("invalid item: %q", it.ID))
			continue
		}
		if name == "" {
			name = localized
		}
		if localized == "" {
			localized = name
		}
		category := it.Category
		if !category.Valid() {
			category = SmallItems
		}
		sel.Items = append(sel.Items, Item{
			ID:            fmt.Sprintf("custom_%d", len(sel.Items)),
			Name:          name,
			LocalizedName: localized,
			Category:      category,
			Count:         count,
			Note:          it.Note,
			SourceImageID: it.SourceImageID,
		})
	}
	sel.TotalCount = TotalCount(sel.Items)
	return sel
}
