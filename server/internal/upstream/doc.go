// Package upstream is the HTTP client for the order-data provider.
//
// It lists stores (paginated by limit/offset), fetches one store's profile
// and fetches a store's raw orders. Order records are decoded one by one so
// a single malformed record is skipped instead of failing the whole store.
//
// Errors wrap ErrStoreNotFound (HTTP 404) or ErrUpstream (transport failure,
// timeout, non-2xx status or undecodable envelope).
package upstream
