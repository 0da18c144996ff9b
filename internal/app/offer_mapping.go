package app

import (
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"

	"offerdesk/internal/model"
	"offerdesk/internal/offer"
)

func recordToOffer(rec offer.Record, doc *model.Document) (*model.Offer, error) {
	fields, err := json.Marshal(rec.Fields)
	if err != nil {
		return nil, fmt.Errorf("marshal offer fields failed: %w", err)
	}
	unparsed := rec.Unparsed
	if unparsed == nil {
		unparsed = map[string]string{}
	}
	unparsedJSON, err := json.Marshal(unparsed)
	if err != nil {
		return nil, fmt.Errorf("marshal unparsed fields failed: %w", err)
	}
	return &model.Offer{
		OrgID:         doc.OrgID,
		CollectionID:  doc.CollectionID,
		DocumentID:    doc.ID,
		Issuer:        rec.Issuer,
		Fields:        datatypes.JSON(fields),
		Unparsed:      datatypes.JSON(unparsedJSON),
		PremiumTotal:  rec.Pricing.PremiumTotal,
		InsuredAmount: rec.Pricing.InsuredAmount,
		Currency:      rec.Pricing.Currency,
		PeriodFrom:    rec.Pricing.PeriodFrom,
		PeriodTo:      rec.Pricing.PeriodTo,
		SourceText:    rec.SourceText,
	}, nil
}

// offerToRecord rebuilds the normalized record of a stored offer. sourceID
// identifies the originating document in comparison metadata.
func offerToRecord(o model.Offer, sourceID string) (offer.Record, error) {
	rec := offer.Record{
		SourceID: sourceID,
		Issuer:   o.Issuer,
		Fields:   offer.FieldMap{},
		Pricing: offer.Pricing{
			PremiumTotal:  o.PremiumTotal,
			InsuredAmount: o.InsuredAmount,
			Currency:      o.Currency,
			PeriodFrom:    o.PeriodFrom,
			PeriodTo:      o.PeriodTo,
		},
		CreatedAt: o.CreatedAt,
	}
	if len(o.Fields) > 0 {
		if err := json.Unmarshal(o.Fields, &rec.Fields); err != nil {
			return offer.Record{}, fmt.Errorf("decode fields of offer %d failed: %w", o.ID, err)
		}
	}
	if len(o.Unparsed) > 0 {
		if err := json.Unmarshal(o.Unparsed, &rec.Unparsed); err != nil {
			return offer.Record{}, fmt.Errorf("decode unparsed fields of offer %d failed: %w", o.ID, err)
		}
	}
	return rec, nil
}
