package rag

import (
	"errors"
	"fmt"
)

// 管道错误类别：调用方用 errors.Is 判别
var (
	// ErrMalformedJob 任务缺字段或引用不存在的实体
	ErrMalformedJob = errors.New("malformed job")
	// ErrModelError 嵌入/补全模型调用失败或返回非法向量
	ErrModelError = errors.New("model error")
	// ErrTenantIsolation 检索结果混入了其他租户的数据（内部严重缺陷）
	ErrTenantIsolation = errors.New("tenant isolation violation")
	// ErrSyncConflict 同步过程中目录数据发生变化
	ErrSyncConflict = errors.New("sync conflict")
	// ErrRunTimeout 托管运行超过墙钟上限仍未终结
	ErrRunTimeout = errors.New("run timeout")
	// ErrRunFailed 托管运行以失败类终态结束
	ErrRunFailed = errors.New("run failed")
)

// Errf 包装错误类别并附加上下文
func Errf(kind error, format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{kind}, args...)...)
}
