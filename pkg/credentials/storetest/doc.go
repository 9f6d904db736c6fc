// Package storetest provides a conformance test suite for credential store
// implementations.
//
// Every backend (file, memory, badger, sqlite, postgres) should pass these
// tests. The suite pins down the Store contract: a missing slot is never an
// error, Write is all-or-nothing, Clear is idempotent, and concurrent callers
// never observe a mix of two different writes.
//
// Usage:
//
//	func TestConformance(t *testing.T) {
//	    storetest.RunConformanceSuite(t, func(t *testing.T) credentials.Store {
//	        return credentials.NewMemoryStore()
//	    })
//	}
package storetest
