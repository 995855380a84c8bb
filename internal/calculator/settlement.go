// Package calculator totals purchases into monthly statements.
package calculator

import (
	"cmp"
	"slices"

	"github.com/mmynk/zbuppan/internal/models"
)

// Line is one item on a user's statement.
type Line struct {
	ItemID   string
	ItemName string
	Price    int64
	Quantity int
	Subtotal int64
}

// Statement is what one user owes for a period.
type Statement struct {
	UserID   string
	UserName string
	Lines    []Line
	Count    int   // Number of purchases
	Total    int64 // Sum of all lines
}

// Settle groups purchases by buyer and item. Statements are ordered by total,
// largest first, then by user name; lines the same way by subtotal then item
// name. Item prices never change, so lines are keyed by item alone.
func Settle(details []*models.PurchaseDetail) []Statement {
	byUser := make(map[string]*Statement)
	lines := make(map[string]map[string]*Line)

	for _, d := range details {
		st, ok := byUser[d.UserID]
		if !ok {
			st = &Statement{UserID: d.UserID, UserName: d.UserName}
			byUser[d.UserID] = st
			lines[d.UserID] = make(map[string]*Line)
		}

		line, ok := lines[d.UserID][d.Item.ID]
		if !ok {
			line = &Line{ItemID: d.Item.ID, ItemName: d.Item.Name, Price: d.Item.Price}
			lines[d.UserID][d.Item.ID] = line
		}
		line.Quantity++
		line.Subtotal += d.Item.Price

		st.Count++
		st.Total += d.Item.Price
	}

	statements := make([]Statement, 0, len(byUser))
	for userID, st := range byUser {
		for _, line := range lines[userID] {
			st.Lines = append(st.Lines, *line)
		}
		slices.SortFunc(st.Lines, func(a, b Line) int {
			if c := cmp.Compare(b.Subtotal, a.Subtotal); c != 0 {
				return c
			}
			return cmp.Or(cmp.Compare(a.ItemName, b.ItemName), cmp.Compare(a.ItemID, b.ItemID))
		})
		statements = append(statements, *st)
	}

	slices.SortFunc(statements, func(a, b Statement) int {
		if c := cmp.Compare(b.Total, a.Total); c != 0 {
			return c
		}
		return cmp.Or(cmp.Compare(a.UserName, b.UserName), cmp.Compare(a.UserID, b.UserID))
	})
	return statements
}

// GrandTotal sums every statement.
func GrandTotal(statements []Statement) int64 {
	var total int64
	for _, st := range statements {
		total += st.Total
	}
	return total
}
