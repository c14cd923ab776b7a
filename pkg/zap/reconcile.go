package zap

import (
	"math"

	"github.com/nbd-wtf/go-nostr"
	"github.com/tidwall/gjson"

	"github.com/Hubmakerlabs/relaychat/pkg/nostr/tag"
	"github.com/Hubmakerlabs/relaychat/pkg/validate"
)

// Receipt is a validated zap receipt.
type Receipt struct {
	Event *nostr.Event
	// Sender is the author of the embedded zap request.
	Sender string
	// Comment is the content of the embedded zap request.
	Comment string
	// Pico is the invoice amount, zero when AmountOK is false.
	Pico     int64
	AmountOK bool
}

// Parse validates ev as a zap receipt and reads it.
func Parse(ev *nostr.Event) (r Receipt, ok bool) {
	if !validate.ZapReceipt(ev) {
		return
	}
	r.Event = ev
	desc, _ := tag.First[tag.Description](ev.Tags)
	req := gjson.Parse(desc.Raw)
	r.Sender = req.Get("pubkey").String()
	r.Comment = req.Get("content").String()
	inv, _ := tag.First[tag.Invoice](ev.Tags)
	var err error
	if r.Pico, err = ParseInvoiceAmount(inv.Bolt11); err != nil {
		log.T.F("receipt %s: %v", ev.ID, err)
		r.Pico = 0
	} else {
		r.AmountOK = true
	}
	return r, true
}

// Targets reports whether the receipt is for the event target.
func (r Receipt) Targets(target string) bool {
	for _, ref := range tag.All[tag.Ref](r.Event.Tags) {
		if ref.EventID == target {
			return true
		}
	}
	return false
}

// Receipts returns the valid receipts among evs that are for target.
func Receipts(target string, evs []*nostr.Event) (rs []Receipt) {
	for _, ev := range evs {
		r, ok := Parse(ev)
		if !ok || !r.Targets(target) {
			continue
		}
		rs = append(rs, r)
	}
	return
}

// Summary is the aggregate of the receipts for one event.
type Summary struct {
	Pico  int64
	Count int
}

// Total returns the sum in base units.
func (s Summary) Total() float64 { return float64(s.Pico) / float64(PicoPerUnit) }

// Sats returns the sum in satoshis, reading the base unit as one bitcoin.
func (s Summary) Sats() float64 { return s.Total() * 1e8 }

// Reconcile sums the receipts for target. Receipts whose amount cannot be
// read still count, with zero amount.
func Reconcile(target string, evs []*nostr.Event) (s Summary) {
	for _, r := range Receipts(target, evs) {
		s.Count++
		if s.Pico > math.MaxInt64-r.Pico {
			log.W.F("zap total for %s out of range, receipt %s ignored",
				target, r.Event.ID)
			continue
		}
		s.Pico += r.Pico
	}
	return
}
