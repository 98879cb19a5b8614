package analytics

import (
	"time"

	"budgetmalin/internal/core"
)

func tx(id string, cents int64, kind core.Kind, category string, date string) core.Transaction {
	d, err := core.ParseDate(date)
	if err != nil {
		panic(err)
	}
	return core.Transaction{ID: id, Amount: core.Money{Cents: cents}, Kind: kind, Category: category, Date: d}
}

func income(id string, cents int64, category, date string) core.Transaction {
	return tx(id, cents, core.KindIncome, category, date)
}

func expense(id string, cents int64, category, date string) core.Transaction {
	return tx(id, cents, core.KindExpense, category, date)
}

func month(y int, m time.Month) core.Month {
	return core.Month{Year: y, Month: m}
}
