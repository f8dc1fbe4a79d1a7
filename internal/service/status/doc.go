// Package status answers delivery-status reads for accounts, campaigns and
// ad groups.
//
// Every read is two batched fetches, entity settings from the repository and
// campaign-stop state from a campaignstop.Provider, followed by pure
// resolution in package delivery. The service never issues a query per
// entity.
//
// Repository implementations live in repository/postgres/.
package status
