// Package commands defines the billingctl CLI.
//
// Commands
//
//   - serve          Run a sandbox native billing layer behind a method channel
//   - configure      Authenticate against the channel with the configured credentials
//   - products       Look up store products by identifier
//   - purchase       Purchase a product
//   - subscriptions  List subscriptions
//   - product-ids    List product identifiers
//   - entitlements   List entitlements
//   - items          List catalog items
//   - plans          List catalog plans
//
// Settings are read from BILLING_* environment variables and an optional
// .env file. Every client command configures the native layer before running
// its operation.
package commands
