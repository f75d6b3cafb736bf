package random

import (
	"crypto/rand"
	"math/big"
	"time"
)

const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// DatedId 生成 prefix + YYMMDD + length 位字母数字
// 例如 DatedId("C", 13) -> C261016AbCdE12345678
func DatedId(prefix string, length int) string {
	return prefix + time.Now().Format("060102") + alnum(length)
}

// alnum 安全随机的字母数字串，读取随机源失败的位置填 'x'
func alnum(length int) string {
	result := make([]byte, length)
	charsetLen := big.NewInt(int64(len(charset)))
	for i := range result {
		n, err := rand.Int(rand.Reader, charsetLen)
		if err != nil {
			result[i] = 'x'
			continue
		}
		result[i] = charset[n.Int64()]
	}
	return string(result)
}
