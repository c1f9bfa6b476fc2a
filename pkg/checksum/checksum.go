// Package checksum 同步数据包的规范化 JSON 与 SHA-256 校验和
// 发送端与接收端共用同一实现，保证逐字节一致
package checksum

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"
)

// ErrTrailingData JSON 值之后还有多余内容
var ErrTrailingData = errors.New("同步数据在 JSON 之后存在多余内容")

// Field 校验和字段名，计算时从顶层对象中剔除
const Field = "checksum"

// TimeLayout 同步边界上的时间格式：UTC、微秒精度、尾随 Z
const TimeLayout = "2006-01-02T15:04:05.000000Z"

// Time 以 TimeLayout 序列化的时间
type Time time.Time

// NewTime 转为 UTC 后包装
func NewTime(t time.Time) Time { return Time(t.UTC()) }

// MarshalJSON 实现 json.Marshaler
func (t Time) MarshalJSON() ([]byte, error) {
	return []byte(`"` + time.Time(t).UTC().Format(TimeLayout) + `"`), nil
}

// UnmarshalJSON 兼容 RFC 3339
func (t *Time) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return fmt.Errorf("无效的时间格式 %q: %w", s, err)
	}
	*t = Time(parsed.UTC())
	return nil
}

// Canonical 规范化 JSON：键按字典序、不转义 HTML、无多余空白、剔除顶层 checksum
// v 可以是结构体，也可以是原始 JSON 字节（json.RawMessage / []byte）
func Canonical(v interface{}) ([]byte, error) {
	var raw []byte
	switch b := v.(type) {
	case []byte:
		raw = b
	case json.RawMessage:
		raw = b
	default:
		var err error
		if raw, err = json.Marshal(v); err != nil {
			return nil, fmt.Errorf("序列化同步数据失败: %w", err)
		}
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var generic interface{}
	if err := dec.Decode(&generic); err != nil {
		return nil, fmt.Errorf("解析同步数据失败: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, ErrTrailingData
	}
	if obj, ok := generic.(map[string]interface{}); ok {
		delete(obj, Field)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(generic); err != nil {
		return nil, fmt.Errorf("规范化同步数据失败: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Compute 计算 v 的校验和（小写十六进制 SHA-256）
func Compute(v interface{}) (string, error) {
	canon, err := Canonical(v)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(canon)
	return hex.EncodeToString(sum[:]), nil
}

// Verify 重新计算并与期望值比较
func Verify(v interface{}, expected string) (bool, error) {
	actual, err := Compute(v)
	if err != nil {
		return false, err
	}
	return actual == expected, nil
}
