package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"net"
	"strings"

	"support_chat_server/pkg/errorx"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

// ==================== 错误包装辅助函数 ====================

// mysqlDuplicateEntry MySQL 唯一键冲突错误号
const mysqlDuplicateEntry = 1062

// classifyDBError 根据底层错误决定业务码：
//   - ErrRecordNotFound -> CodeNotFound
//   - 超时 -> CodeTimeout
//   - 唯一键冲突 -> CodeConflict
//   - 连接失效或网络错误 -> CodeConnectivity
//   - 其他错误 -> CodeDBError
func classifyDBError(err error) int {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return errorx.CodeNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return errorx.CodeTimeout
	case IsDuplicateKey(err):
		return errorx.CodeConflict
	case isConnectivityError(err):
		return errorx.CodeConnectivity
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return errorx.CodeTimeout
	}
	return errorx.CodeDBError
}

// IsDuplicateKey 判断是否为唯一约束冲突
func IsDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDuplicateEntry {
		return true
	}
	// sqlite 驱动未翻译时的兜底
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func isConnectivityError(err error) bool {
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, mysql.ErrInvalidConn) || errors.Is(err, sql.ErrConnDone) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}

// wrapDBError 包装数据库错误
func wrapDBError(err error, msg string) error {
	if err == nil {
		return nil
	}
	return errorx.Wrap(err, classifyDBError(err), msg)
}

// wrapDBErrorf 包装数据库错误（支持格式化消息）
func wrapDBErrorf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return errorx.Wrapf(err, classifyDBError(err), format, args...)
}
