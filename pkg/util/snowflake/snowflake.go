// Package snowflake 生成消息 ID
// ID 按时间递增，同一毫秒内的消息仍可通过 ID 排出先后
package snowflake

import (
	"fmt"
	"sync"

	"github.com/bwmarrin/snowflake"
)

const maxMachineID = 1023

var (
	mu   sync.Mutex
	node *snowflake.Node
)

// Init 设置节点编号，多实例部署时每个实例必须不同
func Init(machineID int64) error {
	if machineID < 0 || machineID > maxMachineID {
		return fmt.Errorf("snowflake machineId %d out of range [0, %d]", machineID, maxMachineID)
	}
	n, err := snowflake.NewNode(machineID)
	if err != nil {
		return err
	}
	mu.Lock()
	node = n
	mu.Unlock()
	return nil
}

// NextId 字符串形式的雪花 ID，避免前端 JavaScript 精度丢失
// 未调用 Init 时使用 0 号节点
func NextId() string {
	mu.Lock()
	if node == nil {
		node, _ = snowflake.NewNode(0)
	}
	n := node
	mu.Unlock()
	return n.Generate().String()
}
