/*
 * @module service/sap_sync/errors
 * @description 同步引擎的领域错误类型
 * @architecture 服务层 - 错误类型
 * @documentReference ai_docs/sap_connector_req.md
 * @stateFlow 引擎产生 -> 控制器层类型断言 -> HTTP状态码映射
 * @rules 同一连接器同一时刻至多一个运行中的同步
 * @dependencies 无外部依赖
 * @refs sync_engine.go
 */

package sap_sync

import "fmt"

// AlreadyRunningError 连接器已有同步在运行
type AlreadyRunningError struct {
	ConnectorID string
}

func (e *AlreadyRunningError) Error() string {
	return fmt.Sprintf("连接器 %s 已有同步任务在运行", e.ConnectorID)
}

// InvalidStateError 连接器当前状态不允许触发同步
type InvalidStateError struct {
	ConnectorID string
	Status      string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("连接器 %s 当前状态(%s)不允许触发同步", e.ConnectorID, e.Status)
}
