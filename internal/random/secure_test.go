package random

import (
	"testing"
)

func TestTransactionID(t *testing.T) {
	// Generate multiple IDs and check uniqueness
	seen := make(map[uint16]bool)
	const iterations = 10000

	for i := 0; i < iterations; i++ {
		id := TransactionID()

		if seen[id] {
			// Collisions are expected: with 10k iterations and 65k
			// possible values, at least one is all but certain and
			// about 700 repeats are typical (birthday paradox)
			// So we just check that we get mostly unique values
			continue
		}
		seen[id] = true
	}

	uniqueCount := len(seen)
	if uniqueCount < iterations*9/10 {
		t.Errorf("too many collisions: got %d unique IDs from %d iterations", uniqueCount, iterations)
	}
}

func TestSourcePort(t *testing.T) {
	const (
		minPort = 32768
		maxPort = 61000
	)

	// Generate multiple ports and check range
	for i := 0; i < 1000; i++ {
		port := SourcePort()

		if port < minPort || port >= maxPort {
			t.Errorf("port %d out of range [%d, %d)", port, minPort, maxPort)
		}
	}
}

func TestSourcePort_Distribution(t *testing.T) {
	// Check that ports are well-distributed
	const iterations = 10000
	buckets := make(map[int]int)

	for i := 0; i < iterations; i++ {
		port := SourcePort()
		// Divide into 10 buckets
		bucket := (int(port) - 32768) / 2824 // (61000-32768)/10
		buckets[bucket]++
	}

	// Each bucket should have roughly 1000 samples
	// Allow 20% deviation
	expectedPerBucket := iterations / 10
	minExpected := expectedPerBucket * 8 / 10
	maxExpected := expectedPerBucket * 12 / 10

	for bucket, count := range buckets {
		if count < minExpected || count > maxExpected {
			t.Errorf("bucket %d has %d samples, expected ~%d", bucket, count, expectedPerBucket)
		}
	}
}

// Benchmark transaction ID generation
func BenchmarkTransactionID(b *testing.B) {
	for i := 0; i < b.N; i++ {
		TransactionID()
	}
}

// Benchmark source port generation
func BenchmarkSourcePort(b *testing.B) {
	for i := 0; i < b.N; i++ {
		SourcePort()
	}
}
