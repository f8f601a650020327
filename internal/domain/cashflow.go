package domain

import "time"

// CashflowBucket is one projected payment period for an account.
// Corresponds to the cashflow_buckets table in PostgreSQL.
// Buckets for an account are strictly ordered by ascending bucket id and
// date; the remaining balance is non-increasing as buckets advance.
// Superseded (deleted and recreated) on every reprojection for the same
// as-of date.
type CashflowBucket struct {
	AsOfDate      time.Time
	AccountNumber string
	BucketID      int // 1-based sequence number
	Date          time.Time
	Principal     float64
	Interest      float64
	TotalPayment  float64
	Balance       float64 // remaining balance after this payment
	Currency      string
}
