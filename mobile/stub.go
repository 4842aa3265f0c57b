//go:build !mobile

// stub.go - 非移动端构建时的占位文件
//
// 桌面端由根目录 main.go 启动 Scrapline；本包的 App 注册与
// data/economy.yaml 嵌入只在 -tags mobile 时编译（见 mobile.go、embed.go）。
package mobile

// Dummy 是一个空导出函数，确保 go build ./... 在桌面端也能编译本包
func Dummy() {}
