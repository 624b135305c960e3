package game

import (
	"math/rand/v2"

	"github.com/google/uuid"
)

func GenID() string {
	id, err := uuid.NewV7()
	if err != nil {
		panic("Failed to generate UUID: " + err.Error())
	}

	return id.String()
}

// IntN 返回 [0, n) 内的均匀随机数，测试中可替换为确定性序列
type IntN func(n int) int

var DefaultIntN IntN = rand.IntN

func boolPtr(b bool) *bool {
	return &b
}
