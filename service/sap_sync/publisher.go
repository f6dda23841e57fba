package sap_sync

import "dpp-integration-service/service/models"

// MultiPublisher 将运行事件按顺序转发给多个发布器
type MultiPublisher []RunPublisher

// NewMultiPublisher 组合多个发布器，nil成员被忽略
func NewMultiPublisher(publishers ...RunPublisher) MultiPublisher {
	var result MultiPublisher
	for _, p := range publishers {
		if p != nil {
			result = append(result, p)
		}
	}
	return result
}

func (m MultiPublisher) PublishProgress(run *models.SyncRun) {
	for _, p := range m {
		p.PublishProgress(run)
	}
}

func (m MultiPublisher) PublishTerminal(run *models.SyncRun) {
	for _, p := range m {
		p.PublishTerminal(run)
	}
}
