// Command cachepart validates cache partitioning configurations and replays
// access traces through partitioned caches.
package main

import "github.com/sarchlab/cachepart/cachepart/cmd"

func main() {
	cmd.Execute()
}
