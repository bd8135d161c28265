// Package main 启动应用程序
package main

import "github.com/yeisme/docvault/pkg/cmd"

//	@title			DocVault API
//	@version		1.0
//	@description	DocVault 是一个文档仓库服务，提供文件上传、修订历史、编辑锁、下载与结构校验修复等功能。

//	@license.name	MIT
//	@license.url	https://opensource.org/license/mit/

//	@contact.name	yeisme
//	@contact.email	yefun2004@gmail.com.

func main() {
	if err := cmd.Execute(); err != nil {
		panic(err)
	}
}
