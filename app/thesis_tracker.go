package app

import (
	"context"
	"fmt"
	"log"
	"time"

	models "momentum-scout/database/models_pkg"
	"momentum-scout/database/theses"
	"momentum-scout/market"
	"momentum-scout/marketdata"
)

// Recommendation labels produced by thesis evaluation
const (
	RecommendationHold     = "HOLD"
	RecommendationStopLoss = "STOP_LOSS"
	RecommendationTarget   = "TARGET_REACHED"
	RecommendationEOD      = "END_OF_DAY"
)

// Evaluation is the outcome of checking one open thesis against a price.
// Err is set when no price was available; the other fields are then empty.
type Evaluation struct {
	OrderID             string  `json:"order_id"`
	Symbol              string  `json:"symbol"`
	Side                string  `json:"side"`
	Price               float64 `json:"price"`
	Recommendation      string  `json:"recommendation"`
	ShouldExit          bool    `json:"should_exit"`
	ExitReason          string  `json:"exit_reason,omitempty"`
	DistanceToStopPct   float64 `json:"distance_to_stop_pct"`
	DistanceToTargetPct float64 `json:"distance_to_target_pct"`
	Err                 string  `json:"error,omitempty"`
}

// ThesisTracker owns the open-position lifecycle: registering theses,
// evaluating them against fresh prices and closing them out.
type ThesisTracker struct {
	repo    *theses.Repository
	gateway marketdata.Gateway
	cal     *market.Calendar
}

// NewThesisTracker creates a new thesis tracker
func NewThesisTracker(repo *theses.Repository, gateway marketdata.Gateway, cal *market.Calendar) *ThesisTracker {
	return &ThesisTracker{repo: repo, gateway: gateway, cal: cal}
}

// OpenThesis registers a thesis for a filled order. Returns false when the
// order id is already tracked.
func (t *ThesisTracker) OpenThesis(thesis *models.TradeThesis) (bool, error) {
	opened, err := t.repo.Open(thesis)
	if err != nil {
		return false, err
	}
	if !opened {
		log.Printf("⚠️ Thesis for order %s already exists, ignoring", thesis.OrderID)
		return false, nil
	}
	log.Printf("📝 Opened %s thesis for %s: %.0f @ %.2f (stop %.2f, target %.2f)",
		thesis.Side, thesis.Symbol, thesis.Quantity, thesis.EntryPrice, thesis.StopLoss, thesis.Target)
	return true, nil
}

// CloseThesis performs the terminal close for an order, computing realized
// profit and loss from the thesis entry. Returns false when no open thesis
// exists for the order id.
func (t *ThesisTracker) CloseThesis(orderID string, exitPrice float64, exitReason string) (bool, error) {
	thesis, err := t.repo.Get(orderID)
	if err != nil {
		return false, err
	}
	if thesis == nil || thesis.Status != models.StatusOpen {
		return false, nil
	}

	pnl := (exitPrice - thesis.EntryPrice) * thesis.Quantity
	if thesis.Side == models.SideShort {
		pnl = -pnl
	}
	pnlPct := 0.0
	if thesis.EntryPrice != 0 && thesis.Quantity != 0 {
		pnlPct = pnl / (thesis.EntryPrice * thesis.Quantity) * 100
	}

	closed, err := t.repo.Close(orderID, exitPrice, exitReason, pnl, pnlPct)
	if err != nil {
		return false, err
	}
	if closed {
		log.Printf("🏁 Closed %s (%s): exit %.2f, P&L %.2f (%.2f%%), reason %s",
			thesis.Symbol, orderID, exitPrice, pnl, pnlPct, exitReason)
	}
	return closed, nil
}

// Evaluate checks every open thesis on a symbol against the given price.
// Each check is appended to the price audit log regardless of outcome.
func (t *ThesisTracker) Evaluate(symbol string, price float64, now time.Time) ([]Evaluation, error) {
	open, err := t.repo.OpenBySymbol(symbol)
	if err != nil {
		return nil, err
	}

	evals := make([]Evaluation, 0, len(open))
	for i := range open {
		eval := t.evaluateOne(&open[i], price, now)
		t.logCheck(&open[i], eval)
		evals = append(evals, eval)
	}
	return evals, nil
}

// EvaluateOpenPositions fetches a fresh price for every open thesis and
// evaluates it. A symbol with no available price yields an error entry for
// its theses without aborting the rest of the batch.
func (t *ThesisTracker) EvaluateOpenPositions(ctx context.Context, now time.Time) ([]Evaluation, error) {
	open, err := t.repo.OpenAll()
	if err != nil {
		return nil, err
	}

	prices := make(map[string]float64)
	priceErrs := make(map[string]error)

	var evals []Evaluation
	for i := range open {
		thesis := &open[i]

		price, ok := prices[thesis.Symbol]
		if !ok {
			if _, failed := priceErrs[thesis.Symbol]; !failed {
				p, perr := t.gateway.LatestPrice(ctx, thesis.Symbol)
				if perr != nil {
					priceErrs[thesis.Symbol] = perr
				} else {
					prices[thesis.Symbol] = p
					price = p
					ok = true
				}
			}
		}

		if !ok {
			evals = append(evals, Evaluation{
				OrderID: thesis.OrderID,
				Symbol:  thesis.Symbol,
				Side:    thesis.Side,
				Err:     fmt.Sprintf("no price for %s: %v", thesis.Symbol, priceErrs[thesis.Symbol]),
			})
			continue
		}

		eval := t.evaluateOne(thesis, price, now)
		t.logCheck(thesis, eval)
		evals = append(evals, eval)
	}
	return evals, nil
}

// evaluateOne applies the exit rules to a single thesis. The end-of-day
// window overrides price checks; otherwise stop and target comparisons
// run side-aware with HOLD as the default.
func (t *ThesisTracker) evaluateOne(thesis *models.TradeThesis, price float64, now time.Time) Evaluation {
	eval := Evaluation{
		OrderID: thesis.OrderID,
		Symbol:  thesis.Symbol,
		Side:    thesis.Side,
		Price:   price,
	}

	if price > 0 {
		if thesis.Side == models.SideLong {
			eval.DistanceToStopPct = (price - thesis.StopLoss) / price * 100
			eval.DistanceToTargetPct = (thesis.Target - price) / price * 100
		} else {
			eval.DistanceToStopPct = (thesis.StopLoss - price) / price * 100
			eval.DistanceToTargetPct = (price - thesis.Target) / price * 100
		}
	}

	switch {
	case t.cal.InEODExitWindow(now):
		eval.Recommendation = RecommendationEOD
		eval.ShouldExit = true
		eval.ExitReason = RecommendationEOD

	case thesis.Side == models.SideLong && price <= thesis.StopLoss:
		eval.Recommendation = RecommendationStopLoss
		eval.ShouldExit = true
		eval.ExitReason = RecommendationStopLoss

	case thesis.Side == models.SideLong && price >= thesis.Target:
		eval.Recommendation = RecommendationTarget
		eval.ShouldExit = true
		eval.ExitReason = RecommendationTarget

	case thesis.Side == models.SideShort && price >= thesis.StopLoss:
		eval.Recommendation = RecommendationStopLoss
		eval.ShouldExit = true
		eval.ExitReason = RecommendationStopLoss

	case thesis.Side == models.SideShort && price <= thesis.Target:
		eval.Recommendation = RecommendationTarget
		eval.ShouldExit = true
		eval.ExitReason = RecommendationTarget

	default:
		eval.Recommendation = RecommendationHold
	}

	return eval
}

func (t *ThesisTracker) logCheck(thesis *models.TradeThesis, eval Evaluation) {
	entry := &models.PriceCheckLog{
		OrderID:             thesis.OrderID,
		Symbol:              thesis.Symbol,
		Price:               eval.Price,
		DistanceToStopPct:   eval.DistanceToStopPct,
		DistanceToTargetPct: eval.DistanceToTargetPct,
		Recommendation:      eval.Recommendation,
		ShouldExit:          eval.ShouldExit,
	}
	if err := t.repo.LogPriceCheck(entry); err != nil {
		log.Printf("⚠️ Failed to log price check for %s: %v", thesis.OrderID, err)
	}
}
