// Package partitioning decides how the ways and the capacity of a
// set-associative cache are shared among partitions.
//
// A cache owns exactly one Policy. On every miss that needs a fill, the cache
// passes the ways of the target set to FilterCandidates and lets its victim
// finder choose only among the returned ways. Once the fill commits, the cache
// reports the eviction of the old occupant with NotifyEvict and the new
// occupant with NotifyAllocate, in that order.
//
// Two policies are provided. A WayPolicy pins each partition to a fixed set of
// ways. A MaxCapacityPolicy caps the number of blocks a partition may hold. A
// Manager chains several policies; a Manager without policies, like NoPolicy,
// lets every partition use every way.
package partitioning
