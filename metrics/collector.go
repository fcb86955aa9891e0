package metrics

// Collector wraps metrics and provides helper methods with pre-filled labels.
type Collector struct {
	engine string
}

// NewCollector creates a new Collector for the given engine ID.
func NewCollector(engine string) *Collector {
	return &Collector{engine: engine}
}

// IncPurchases increments the purchases counter.
func (c *Collector) IncPurchases() {
	PurchasesTotal.WithLabelValues(c.engine).Inc()
}

// IncPurchaseFailures increments the purchase failures counter for a reason.
func (c *Collector) IncPurchaseFailures(reason string) {
	PurchaseFailuresTotal.WithLabelValues(c.engine, reason).Inc()
}

// AddLotsSold adds to the lots sold counter.
func (c *Collector) AddLotsSold(lots uint64) {
	LotsSoldTotal.WithLabelValues(c.engine).Add(float64(lots))
}

// IncReservationConflicts increments the reservation conflicts counter.
func (c *Collector) IncReservationConflicts() {
	ReservationConflictsTotal.WithLabelValues(c.engine).Inc()
}

// SetTokensSold sets the tokens sold gauge.
func (c *Collector) SetTokensSold(tokens float64) {
	TokensSold.WithLabelValues(c.engine).Set(tokens)
}

// SetSaleState sets the sale state gauge. Sets value to 1 for the given state, 0 for others.
func (c *Collector) SetSaleState(state string) {
	states := []string{"pending", "open", "closed"}
	for _, s := range states {
		if s == state {
			SaleState.WithLabelValues(c.engine, s).Set(1)
		} else {
			SaleState.WithLabelValues(c.engine, s).Set(0)
		}
	}
}

// ObservePurchaseDuration records a purchase duration observation.
func (c *Collector) ObservePurchaseDuration(seconds float64) {
	PurchaseDuration.WithLabelValues(c.engine).Observe(seconds)
}

// IncGrantsCreated increments the grants created counter.
func (c *Collector) IncGrantsCreated() {
	GrantsCreatedTotal.WithLabelValues(c.engine).Inc()
}

// IncGrantTopUps increments the grant top-ups counter.
func (c *Collector) IncGrantTopUps() {
	GrantTopUpsTotal.WithLabelValues(c.engine).Inc()
}

// IncClaims increments the claims counter.
func (c *Collector) IncClaims() {
	ClaimsTotal.WithLabelValues(c.engine).Inc()
}

// AddClaimedTokens adds to the claimed tokens counter.
func (c *Collector) AddClaimedTokens(tokens float64) {
	ClaimedTokensTotal.WithLabelValues(c.engine).Add(tokens)
}

// IncGrantConflicts increments the grant conflicts counter.
func (c *Collector) IncGrantConflicts() {
	GrantConflictsTotal.WithLabelValues(c.engine).Inc()
}
