package session

import (
	"github.com/shopspring/decimal"

	"github.com/ivanoskov/ledger_bot/internal/model"
)

// Kind names a conversation step.
type Kind string

const (
	KindIdle           Kind = "IDLE"
	KindSelectType     Kind = "SELECT_TYPE"
	KindSelectAccount  Kind = "SELECT_ACCOUNT"
	KindEnterDetails   Kind = "ENTER_DETAILS"
	KindSelectCategory Kind = "SELECT_CATEGORY"
)

// State is the step a conversation is in. Each implementation carries exactly
// the data collected so far, so a step can never read a field that has not
// been filled in yet.
type State interface {
	Kind() Kind
	isState()
}

// Idle is the resting state: no flow in progress.
type Idle struct{}

// SelectType waits for expense or income. Accounts is the snapshot shown
// once the nature is picked.
type SelectType struct {
	Accounts []model.Account
}

// SelectAccount waits for an account picked from Accounts.
type SelectAccount struct {
	Nature   model.Nature
	Accounts []model.Account
}

// EnterDetails waits for an "<amount> <description>" line.
type EnterDetails struct {
	Nature  model.Nature
	Account model.Account
}

// SelectCategory waits for a category picked from Categories, in the order
// they were listed to the user. TransactionID stays the same across retries
// of a failed submission.
type SelectCategory struct {
	Nature        model.Nature
	Account       model.Account
	Amount        decimal.Decimal
	Name          string
	Categories    []model.Category
	TransactionID string
}

func (Idle) Kind() Kind           { return KindIdle }
func (SelectType) Kind() Kind     { return KindSelectType }
func (SelectAccount) Kind() Kind  { return KindSelectAccount }
func (EnterDetails) Kind() Kind   { return KindEnterDetails }
func (SelectCategory) Kind() Kind { return KindSelectCategory }

func (Idle) isState()           {}
func (SelectType) isState()     {}
func (SelectAccount) isState()  {}
func (EnterDetails) isState()   {}
func (SelectCategory) isState() {}
