package adb

import (
	"io"
	"os"
	"sync"
)

// DumpEnv 设置后所有连接的收发字节都追加写入该文件
const DumpEnv = "ADB_HOST_DUMP"

var (
	envDumpOnce sync.Once
	envDump     io.Writer
)

// dumpFromEnv 按环境变量打开 dump 文件，只打开一次
func dumpFromEnv() io.Writer {
	envDumpOnce.Do(func() {
		envDump = openDump(os.Getenv(DumpEnv))
	})
	return envDump
}

// openDump 以追加方式打开 dump 文件；路径为空或无法打开时返回 nil，即不 dump
func openDump(path string) io.Writer {
	if path == "" {
		return nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil
	}
	return &lockedWriter{w: f}
}

// lockedWriter 多个连接共享同一个 dump 目标
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

// DumpReader 把读到的数据同时写入 dump
type DumpReader struct {
	reader io.Reader
	dump   io.Writer
}

// NewDumpReader 创建新的DumpReader
func NewDumpReader(reader io.Reader, dump io.Writer) *DumpReader {
	return &DumpReader{reader: reader, dump: dump}
}

// Read 实现io.Reader接口
func (d *DumpReader) Read(p []byte) (n int, err error) {
	n, err = d.reader.Read(p)
	if n > 0 {
		d.dump.Write(p[:n])
	}
	return
}

// DumpWriter 把写出的数据同时写入 dump
type DumpWriter struct {
	writer io.Writer
	dump   io.Writer
}

// NewDumpWriter 创建新的DumpWriter
func NewDumpWriter(writer io.Writer, dump io.Writer) *DumpWriter {
	return &DumpWriter{writer: writer, dump: dump}
}

// Write 实现io.Writer接口
func (d *DumpWriter) Write(p []byte) (n int, err error) {
	n, err = d.writer.Write(p)
	if n > 0 {
		d.dump.Write(p[:n])
	}
	return
}
