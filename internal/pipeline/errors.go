// Package pipeline 实现文档向量化的核心流程与每项目的后台运行控制。
package pipeline

import "errors"

// 管道的错误种类。局部可恢复的情形（单次富化失败）在富化层内部
// 以确定性降级消化，不会出现在这里。
var (
	// ErrExtractionFailed 文本无法获得。文档标记失败并存入占位记录，继续下一文档。
	ErrExtractionFailed = errors.New("pipeline: text extraction failed")
	// ErrConfiguration 缺少模型服务凭证。对整轮运行致命，在任何文档被处理前抛出。
	ErrConfiguration = errors.New("pipeline: missing model service credentials")
	// ErrEmbeddingFailed 某个分块向量化失败。中止该文档的整批写入，不产生部分插入。
	ErrEmbeddingFailed = errors.New("pipeline: embedding failed")
	// ErrInsertionFailed 批量写入失败。存储层已清理部分行，文档标记失败。
	ErrInsertionFailed = errors.New("pipeline: batch insertion failed")
	// ErrCancelled 协作式取消，不是错误：文档回退 pending，运行状态变为 pending。
	ErrCancelled = errors.New("pipeline: run cancelled")
	// ErrRunConflict 同一项目已有运行在处理中，新的启动请求被拒绝而非排队。
	ErrRunConflict = errors.New("pipeline: a run is already processing for this project")
	// ErrRunNotFound 项目当前没有活动运行。
	ErrRunNotFound = errors.New("pipeline: no active run for this project")
)
