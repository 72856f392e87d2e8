// Package models defines the core domain models for Splitwose.
//
// # Records
//
// The following models are persisted by a storage backend:
//   - User: Registered account, referenced everywhere else by ID
//   - Expense: A shared cost paid by one user and split equally among participants
//   - Settlement: A direct payment from one user to another
//
// # Projections
//
// The following models are derived on every request and never stored:
//   - Balance: Signed net amount between the viewer and one counterparty
//   - SettlementDetail: A settlement joined with both parties' display data
//   - ExpenseDetail: An expense joined with its payer and participants' display data
//
// # Design Principles
//
//  1. **IDs at the math boundary**: Expense payer and participants are always
//     resolved user IDs; display names are joined in only after netting
//  2. **Immutable records**: Expenses and settlements are created once and never updated
//  3. **Avoid circular references**: Use ID strings instead of pointers for relationships
package models
