package world

import "github.com/Jaydccq/mini-ups-sub001/internal/domain"

// Batch converts decoded responses into the domain's inbound batch.
func (r Responses) Batch() domain.Batch {
	b := domain.Batch{Finished: r.Finished}
	for _, c := range r.Completions {
		b.Completions = append(b.Completions, domain.Completion{
			TruckID: c.TruckID, X: c.X, Y: c.Y, StatusTag: c.Status, Seq: c.Seq,
		})
	}
	for _, d := range r.Delivered {
		b.Deliveries = append(b.Deliveries, domain.Delivery{
			TruckID: d.TruckID, PackageID: d.PackageID, Seq: d.Seq,
		})
	}
	for _, t := range r.TruckStatus {
		b.Statuses = append(b.Statuses, domain.StatusUpdate{
			TruckID: t.TruckID, X: t.X, Y: t.Y, StatusTag: t.Status, Seq: t.Seq,
		})
	}
	for _, e := range r.Errors {
		b.Errors = append(b.Errors, domain.ErrorEntry{
			Message: e.Message, OriginSeq: e.OriginSeq, Seq: e.Seq,
		})
	}
	if len(r.Acks) > 0 {
		b.Acks = append([]int64(nil), r.Acks...)
	}
	return b
}
