// Package models defines the persisted domain records for the shop.
//
// # Records
//
//   - User: a registered account. Registration order (CreatedAt ascending) is
//     load-bearing: it decides which anonymous name a user gets each month.
//   - Item: a catalog entry. Items are soft-deleted by setting DeletedAt and
//     are never removed, so historical purchases keep their references.
//   - Purchase: one purchase action by one user of one item.
//
// # Views
//
//   - PurchaseDetail: a purchase joined with its item and buyer, the shape the
//     timeline and history views consume.
//   - ItemSummary: an item joined with its owner's name and sales count, the
//     shape of the admin catalog.
//
// # Conventions
//
// Timestamps are Unix milliseconds. Optional timestamps are pointers; nil means
// "not set" (an item or purchase without DeletedAt is active). Relationships
// are ID strings rather than pointers.
package models
