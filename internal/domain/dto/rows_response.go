package dto

import (
	"github.com/guttosm/idxpulse/internal/cache"
	"github.com/guttosm/idxpulse/internal/domain/models"
)

// BrokerRowResponse is the JSON shape of one broker aggregate row. It
// exposes the headline fields a dashboard renders; the full metric set
// stays in the CSV outputs.
type BrokerRowResponse struct {
	Broker       string  `json:"broker" example:"YP"`
	BuyerVol     int64   `json:"buyer_vol" example:"150"`
	BuyerValue   float64 `json:"buyer_value" example:"1600"`
	BuyerAvg     float64 `json:"buyer_avg" example:"10.67"`
	BuyerFreq    int64   `json:"buyer_freq" example:"2"`
	SellerVol    int64   `json:"seller_vol" example:"80"`
	SellerValue  float64 `json:"seller_value" example:"880"`
	SellerAvg    float64 `json:"seller_avg" example:"11"`
	SellerFreq   int64   `json:"seller_freq" example:"1"`
	NetBuyVol    int64   `json:"net_buy_vol" example:"70"`
	NetBuyValue  float64 `json:"net_buy_value" example:"720"`
	NetSellVol   int64   `json:"net_sell_vol" example:"0"`
	NetSellValue float64 `json:"net_sell_value" example:"0"`
}

// RowsResponse wraps the rows of one partition output file.
type RowsResponse struct {
	Date     string              `json:"date" example:"20260115"`
	Segment  string              `json:"segment" example:"RG"`
	Investor string              `json:"investor" example:"D"`
	Stock    string              `json:"stock,omitempty" example:"BBCA"`
	Rows     []BrokerRowResponse `json:"rows"`
}

// StatsResponse reports run observability counters.
type StatsResponse struct {
	Cache cache.Stats `json:"cache"`
}

// FromBrokerRows maps domain rows to their response shape, preserving order.
func FromBrokerRows(rows []models.BrokerRow) []BrokerRowResponse {
	out := make([]BrokerRowResponse, 0, len(rows))
	for _, r := range rows {
		out = append(out, BrokerRowResponse{
			Broker:       r.Broker,
			BuyerVol:     r.BuyerVol,
			BuyerValue:   r.BuyerValue,
			BuyerAvg:     r.BuyerAvg,
			BuyerFreq:    r.BuyerFreq,
			SellerVol:    r.SellerVol,
			SellerValue:  r.SellerValue,
			SellerAvg:    r.SellerAvg,
			SellerFreq:   r.SellerFreq,
			NetBuyVol:    r.NetBuyVol,
			NetBuyValue:  r.NetBuyValue,
			NetSellVol:   r.NetSellVol,
			NetSellValue: r.NetSellValue,
		})
	}
	return out
}
