package loader

// Source names an input dataset.
type Source string

// Source constants.
const (
	SourceOrders              Source = "orders"
	SourceOrderItems          Source = "order_items"
	SourceProducts            Source = "products"
	SourceSellers             Source = "sellers"
	SourceCategoryTranslation Source = "category_translation"
	SourceEngagement          Source = "engagement"
	SourceCreators            Source = "creators"
	SourceSessions            Source = "sessions"
)

// Sources returns every source in load order.
func Sources() []Source {
	return []Source{
		SourceCategoryTranslation, SourceProducts, SourceOrders, SourceOrderItems,
		SourceSellers, SourceCreators, SourceSessions, SourceEngagement,
	}
}

// Required reports whether the commerce tables depend on the source.
func (s Source) Required() bool {
	switch s {
	case SourceOrders, SourceOrderItems, SourceProducts:
		return true
	default:
		return false
	}
}

// DefaultFile returns the conventional file name of the source.
func (s Source) DefaultFile() string {
	return string(s) + ".csv"
}

// Schema declares the canonical columns of a source. Columns maps each
// canonical name to the normalized header names accepted for it, in priority
// order.
type Schema struct {
	Source   Source
	Required []string
	Columns  map[string][]string
}

// Canonical column names shared across sources.
const (
	colOrderID        = "order_id"
	colCustomerID     = "customer_id"
	colPurchasedAt    = "purchased_at"
	colStatus         = "status"
	colProductID      = "product_id"
	colSellerID       = "seller_id"
	colQuantity       = "quantity"
	colPrice          = "price"
	colCategory       = "category"
	colName           = "name"
	colSourceLabel    = "source_label"
	colEnglishLabel   = "english_label"
	colID             = "id"
	colCreatorID      = "creator_id"
	colSessionID      = "session_id"
	colLikes          = "likes"
	colComments       = "comments"
	colShares         = "shares"
	colLevel          = "level"
	colScore          = "score"
	colTier           = "tier"
	colStart          = "start"
	colHour           = "hour"
	colTimeSlot       = "time_slot"
	colDuration       = "duration_minutes"
	colViews          = "views"
	colUniqueViewers  = "unique_viewers"
	colRevenue        = "revenue"
	colConversionRate = "conversion_rate"
	colEngagementRate = "engagement_rate"
)

// Schemas returns the schema of every source.
//
//nolint:funlen // Declarative table.
func Schemas() map[Source]Schema {
	return map[Source]Schema{
		SourceOrders: {
			Source:   SourceOrders,
			Required: []string{colOrderID, colCustomerID, colPurchasedAt},
			Columns: map[string][]string{
				colOrderID:     {"order_id"},
				colCustomerID:  {"customer_id", "customer_unique_id", "buyer_id"},
				colPurchasedAt: {"order_purchase_timestamp", "purchased_at", "order_time", "created_at", "timestamp", "order_date"},
				colStatus:      {"order_status", "status"},
			},
		},
		SourceOrderItems: {
			Source:   SourceOrderItems,
			Required: []string{colOrderID, colProductID, colPrice},
			Columns: map[string][]string{
				colOrderID:   {"order_id"},
				colProductID: {"product_id"},
				colSellerID:  {"seller_id", "creator_id"},
				colQuantity:  {"quantity", "qty"},
				colPrice:     {"price", "unit_price", "item_price"},
			},
		},
		SourceProducts: {
			Source:   SourceProducts,
			Required: []string{colProductID, colCategory},
			Columns: map[string][]string{
				colProductID: {"product_id"},
				colCategory:  {"product_category_name", "product_category", "category"},
				colName:      {"product_name", "name", "title"},
				colPrice:     {"product_price", "price"},
			},
		},
		SourceSellers: {
			Source:   SourceSellers,
			Required: []string{colSellerID},
			Columns: map[string][]string{
				colSellerID: {"seller_id"},
				colName:     {"seller_name", "name", "seller_city"},
			},
		},
		SourceCategoryTranslation: {
			Source:   SourceCategoryTranslation,
			Required: []string{colSourceLabel, colEnglishLabel},
			Columns: map[string][]string{
				colSourceLabel:  {"product_category_name", "category", "source"},
				colEnglishLabel: {"product_category_name_english", "category_english", "english", "translation"},
			},
		},
		SourceEngagement: {
			Source: SourceEngagement,
			Columns: map[string][]string{
				colID:             {"engagement_id", "video_id", "comment_id", "id"},
				colCreatorID:      {"creator_id", "channel_id"},
				colSessionID:      {"session_id"},
				colLikes:          {"likes", "like_count"},
				colComments:       {"comments", "reply_count", "comment_count"},
				colShares:         {"shares", "retweet_count", "share_count"},
				colLevel:          {"engagement_level", "level", "engagement_type", "type"},
				colScore:          {"engagement_score", "score"},
				colConversionRate: {"conversion_rate"},
			},
		},
		SourceCreators: {
			Source:   SourceCreators,
			Required: []string{colCreatorID},
			Columns: map[string][]string{
				colCreatorID: {"creator_id", "seller_id"},
				colName:      {"creator_name", "name"},
				colTier:      {"creator_tier", "tier"},
				colCategory:  {"creator_category", "category", "specialty"},
			},
		},
		SourceSessions: {
			Source:   SourceSessions,
			Required: []string{colSessionID, colCreatorID, colStart},
			Columns: map[string][]string{
				colSessionID:      {"session_id"},
				colCreatorID:      {"creator_id"},
				colCustomerID:     {"customer_id"},
				colOrderID:        {"order_id"},
				colStart:          {"start_time", "started_at", "session_start", "session_date", "date"},
				colHour:           {"hour", "start_hour"},
				colTimeSlot:       {"time_slot", "slot"},
				colCategory:       {"category", "session_category"},
				colDuration:       {"duration_minutes", "duration"},
				colViews:          {"views", "view_count"},
				colUniqueViewers:  {"unique_viewers"},
				colLikes:          {"likes", "like_count"},
				colComments:       {"comments", "comment_count"},
				colRevenue:        {"revenue", "sales"},
				colConversionRate: {"conversion_rate"},
				colEngagementRate: {"engagement_rate"},
			},
		},
	}
}
