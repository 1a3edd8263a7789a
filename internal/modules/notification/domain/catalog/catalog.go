// Package catalog 推送类型到标题/级别、实体到前端路由的固定映射
package catalog

import (
	"strconv"

	"github.com/Phambanam99/qlvb-thanh-sub003/internal/modules/notification/domain/entity"
	"github.com/Phambanam99/qlvb-thanh-sub003/internal/modules/realtime/domain/event"
)

const DefaultTitle = "Thông báo mới"

type presentation struct {
	title    string
	severity entity.Severity
}

var presentations = map[event.MessageType]presentation{
	event.InternalDocumentReceived: {"Văn bản nội bộ mới", entity.SeverityInfo},
	event.InternalDocumentSent:     {"Văn bản nội bộ đã được gửi", entity.SeveritySuccess},
	event.InternalDocumentUpdated:  {"Văn bản nội bộ được cập nhật", entity.SeverityWarning},
	event.InternalDocumentRead:     {"Văn bản nội bộ đã được đọc", entity.SeverityInfo},
	event.ExternalDocumentReceived: {"Văn bản đến mới", entity.SeverityInfo},
	event.ExternalDocumentUpdated:  {"Văn bản đến được cập nhật", entity.SeverityWarning},
}

var routes = map[string]string{
	event.EntityInternalDocument: "/van-ban-noi-bo/",
	event.EntityExternalDocument: "/van-ban-den/",
}

// Title 未知类型返回通用标题
func Title(t event.MessageType) string {
	if p, ok := presentations[t]; ok {
		return p.title
	}
	return DefaultTitle
}

func SeverityOf(t event.MessageType) entity.Severity {
	if p, ok := presentations[t]; ok {
		return p.severity
	}
	return entity.SeverityInfo
}

// Link 其他实体类型没有详情页，返回空串
func Link(entityType string, entityID int64) string {
	prefix, ok := routes[entityType]
	if !ok || entityID <= 0 {
		return ""
	}
	return prefix + strconv.FormatInt(entityID, 10)
}
