// Package idgen generates snowflake ids for business entities.
package idgen

import (
	"fmt"
	"sync"

	"github.com/bwmarrin/snowflake"
)

var (
	node *snowflake.Node
	once sync.Once
)

// Init creates the snowflake node. Each service instance must use a distinct
// node id in a clustered deployment.
func Init(nodeID int64) error {
	var err error
	once.Do(func() {
		node, err = snowflake.NewNode(nodeID)
	})
	return err
}

// GenID returns the next snowflake id, lazily initializing node 1 when Init
// was never called (tests, tools).
func GenID() int64 {
	if node == nil {
		if err := Init(1); err != nil {
			panic(fmt.Sprintf("idgen: %v", err))
		}
	}
	return node.Generate().Int64()
}

// GenStringID returns an id with a business prefix, e.g. "LOAN-1234".
func GenStringID(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, GenID())
}
