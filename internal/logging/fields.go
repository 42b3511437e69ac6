package logging

import "github.com/sirupsen/logrus"

// BaseFields 构建 action + 配置路径等基础字段，便于不同入口复用。
func BaseFields(action, configPath string) logrus.Fields {
	return logrus.Fields{
		"action":     action,
		"configPath": configPath,
	}
}

// RequestFields 提供 method/path/请求 ID 字段，供访问日志与处理器复用。
func RequestFields(requestID, method, path string) logrus.Fields {
	return logrus.Fields{
		"request_id": requestID,
		"method":     method,
		"path":       path,
	}
}

// RepoFields 提供仓库坐标字段，文件解析与 paths-info 日志共用。
func RepoFields(kind, repoID, revision string) logrus.Fields {
	return logrus.Fields{
		"repo_kind": kind,
		"repo_id":   repoID,
		"revision":  revision,
	}
}
