// Package format renders reference data and transactions as chat text.
package format

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ivanoskov/ledger_bot/internal/model"
)

const (
	NoAccounts     = "🏦 No accounts found. Add one in your finance app first."
	NoCategories   = "📁 No categories found. Add one in your finance app first."
	NoTransactions = "🧾 No recent transactions."

	uncategorized = "Uncategorized"
	dateLayout    = "2006-01-02"
)

var currencySymbols = map[string]string{
	"":    "$",
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
	"RUB": "₽",
	"JPY": "¥",
}

// OrderCategories returns expense categories followed by income categories,
// each group in its original order. This is the numbering Categories shows.
// Categories of any other classification are left out.
func OrderCategories(categories []model.Category) []model.Category {
	ordered := make([]model.Category, 0, len(categories))
	for _, cat := range categories {
		if cat.Classification == model.ClassificationExpense {
			ordered = append(ordered, cat)
		}
	}
	for _, cat := range categories {
		if cat.Classification == model.ClassificationIncome {
			ordered = append(ordered, cat)
		}
	}
	return ordered
}

func Categories(categories []model.Category) string {
	ordered := OrderCategories(categories)
	if len(ordered) == 0 {
		return NoCategories
	}

	var b strings.Builder
	b.WriteString("📁 Select a category:\n")

	var current model.Classification
	for i, cat := range ordered {
		if cat.Classification != current {
			current = cat.Classification
			if current == model.ClassificationExpense {
				b.WriteString("\n💸 Expenses:\n")
			} else {
				b.WriteString("\n💰 Income:\n")
			}
		}
		fmt.Fprintf(&b, "%d. %s\n", i+1, cat.Name)
	}

	b.WriteString("\nReply with the number or the name of the category.")
	return b.String()
}

func Accounts(accounts []model.Account) string {
	if len(accounts) == 0 {
		return NoAccounts
	}

	var b strings.Builder
	b.WriteString("🏦 Accounts:\n\n")
	for i, acc := range accounts {
		fmt.Fprintf(&b, "%d. %s", i+1, acc.Name)
		if acc.Balance != nil {
			fmt.Fprintf(&b, " (%s)", Currency(*acc.Balance, acc.Currency))
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func Transactions(transactions []model.Transaction) string {
	if len(transactions) == 0 {
		return NoTransactions
	}

	var b strings.Builder
	b.WriteString("🧾 Recent transactions:\n")
	for i, tx := range transactions {
		sign := ""
		if !tx.Amount.IsNegative() {
			sign = "+"
		}
		category := tx.CategoryName()
		if category == "" {
			category = uncategorized
		}
		fmt.Fprintf(&b, "\n%d. %s%s %s\n   📅 %s · 📁 %s\n",
			i+1, sign, Currency(tx.Amount, tx.Currency), tx.Name, Date(tx.Date), category)
	}
	return strings.TrimRight(b.String(), "\n")
}

// Currency renders amount with two decimals, thousands separators and the
// currency symbol, e.g. "-$1,234.50". Unknown codes are written out.
func Currency(amount decimal.Decimal, currency string) string {
	currency = strings.ToUpper(strings.TrimSpace(currency))

	sign := ""
	if amount.IsNegative() {
		sign = "-"
	}
	digits := groupThousands(amount.Abs().StringFixed(2))

	if symbol, ok := currencySymbols[currency]; ok {
		return sign + symbol + digits
	}
	return sign + digits + " " + currency
}

// Date renders a YYYY-MM-DD date as "Jan 2, 2006". Anything else is returned as is.
func Date(value string) string {
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		if t, err = time.Parse(time.RFC3339, value); err != nil {
			return value
		}
	}
	return t.Format("Jan 2, 2006")
}

func groupThousands(fixed string) string {
	whole, frac, _ := strings.Cut(fixed, ".")
	if len(whole) <= 3 {
		return fixed
	}

	var b strings.Builder
	lead := len(whole) % 3
	if lead > 0 {
		b.WriteString(whole[:lead])
	}
	for i := lead; i < len(whole); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(whole[i : i+3])
	}
	if frac != "" {
		b.WriteByte('.')
		b.WriteString(frac)
	}
	return b.String()
}
