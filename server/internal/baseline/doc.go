// Package baseline learns each store's normal behaviour from successive
// polls. It keeps an exponentially weighted moving average per store in
// memory, with TTL eviction for stores that stop being polled.
package baseline
