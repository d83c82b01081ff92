// internal/pnl/engine.go
package pnl

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/rovshanmuradov/jupiter-swap-service/internal/storage/models"
)

// displayPrecision — округление денежных полей на границе API.
// Внутреннее накопление идёт в полной точности decimal.
const displayPrecision = 6

// TokenReport — PnL по одному токену.
type TokenReport struct {
	Token         string  `json:"token"`
	WABP          float64 `json:"wabp"`
	CurrentAmount float64 `json:"current_amount"`
	RealizedPnL   float64 `json:"realized_pnl"`
	UnrealizedPnL float64 `json:"unrealized_pnl"`
	TotalPnL      float64 `json:"total_pnl"`
	// PriceAvailable=false означает деградацию оракула: unrealized по токену
	// обнулён, а не посчитан.
	PriceAvailable bool `json:"price_available"`
}

// Report — агрегированный PnL пользователя.
type Report struct {
	UserID   string        `json:"user_id"`
	Tokens   []TokenReport `json:"tokens"`
	TotalPnL float64       `json:"total_pnl"`
}

// position — накопители инкрементального реплея по одному токену.
type position struct {
	wabp     decimal.Decimal
	amount   decimal.Decimal
	realized decimal.Decimal
}

// Compute реплеит историю сделок пользователя в хронологическом порядке и
// возвращает per-token cost basis, realized и unrealized PnL.
//
// Правила реплея:
//   - BUY: wabp пересчитывается как средневзвешенная цена текущей позиции;
//   - SELL: realized += (цена продажи − wabp) × количество; wabp не меняется,
//     cost basis оставшихся единиц продажа не затрагивает.
//
// Полностью закрытые позиции остаются в отчёте с current_amount = 0:
// их реализованная история — часть результата. Переход amount через ноль
// вниз (продажа сверх позиции) отчёт не роняет.
func Compute(userID string, trades []models.Trade, prices map[string]decimal.Decimal) *Report {
	report := &Report{
		UserID: userID,
		Tokens: []TokenReport{},
	}
	if len(trades) == 0 {
		return report
	}

	// Журнал не гарантирует порядок вставки, реплей сортирует сам.
	ordered := make([]models.Trade, len(trades))
	copy(ordered, trades)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Timestamp.Equal(ordered[j].Timestamp) {
			return ordered[i].ID < ordered[j].ID
		}
		return ordered[i].Timestamp.Before(ordered[j].Timestamp)
	})

	positions := make(map[string]*position)
	var tokenOrder []string

	for _, trade := range ordered {
		pos, ok := positions[trade.Token]
		if !ok {
			pos = &position{}
			positions[trade.Token] = pos
			tokenOrder = append(tokenOrder, trade.Token)
		}

		switch trade.Side {
		case models.SideBuy:
			newAmount := pos.amount.Add(trade.Amount)
			if newAmount.IsZero() {
				// Нулевой объём покупки: wabp пересчитывать не от чего.
				continue
			}
			pos.wabp = pos.wabp.Mul(pos.amount).
				Add(trade.Price.Mul(trade.Amount)).
				Div(newAmount)
			pos.amount = newAmount
		case models.SideSell:
			pos.realized = pos.realized.Add(trade.Price.Sub(pos.wabp).Mul(trade.Amount))
			pos.amount = pos.amount.Sub(trade.Amount)
		}
	}

	total := decimal.Zero
	for _, token := range tokenOrder {
		pos := positions[token]

		currentPrice, priceKnown := prices[token]
		unrealized := decimal.Zero
		if pos.amount.IsPositive() && priceKnown {
			unrealized = currentPrice.Sub(pos.wabp).Mul(pos.amount)
		}
		tokenTotal := pos.realized.Add(unrealized)
		total = total.Add(tokenTotal)

		report.Tokens = append(report.Tokens, TokenReport{
			Token:          token,
			WABP:           round(pos.wabp),
			CurrentAmount:  round(pos.amount),
			RealizedPnL:    round(pos.realized),
			UnrealizedPnL:  round(unrealized),
			TotalPnL:       round(tokenTotal),
			PriceAvailable: priceKnown,
		})
	}

	report.TotalPnL = round(total)
	return report
}

// AggregateTotal — закрытая форма суммарного PnL, независимая от порядка
// сделок: Σ(balance × цена − cost basis). Служит проверкой согласованности
// инкрементального реплея, не вторым источником истины: при полной
// ликвидации (balance = 0) обе формы обязаны совпадать.
func AggregateTotal(trades []models.Trade, prices map[string]decimal.Decimal) decimal.Decimal {
	type aggregate struct {
		balance   decimal.Decimal
		costBasis decimal.Decimal
	}

	byToken := make(map[string]*aggregate)
	for _, trade := range trades {
		agg, ok := byToken[trade.Token]
		if !ok {
			agg = &aggregate{}
			byToken[trade.Token] = agg
		}
		notional := trade.Amount.Mul(trade.Price)
		switch trade.Side {
		case models.SideBuy:
			agg.balance = agg.balance.Add(trade.Amount)
			agg.costBasis = agg.costBasis.Add(notional)
		case models.SideSell:
			agg.balance = agg.balance.Sub(trade.Amount)
			agg.costBasis = agg.costBasis.Sub(notional)
		}
	}

	total := decimal.Zero
	for token, agg := range byToken {
		value := decimal.Zero
		if price, ok := prices[token]; ok && agg.balance.IsPositive() {
			value = agg.balance.Mul(price)
		}
		total = total.Add(value.Sub(agg.costBasis))
	}
	return total
}

func round(d decimal.Decimal) float64 {
	return d.Round(displayPrecision).InexactFloat64()
}
