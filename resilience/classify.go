package resilience

import (
	"github.com/ceyewan/workhub/xerrors"
)

// ErrKindConflict 同一错误类型同时出现在计入与忽略列表中
var ErrKindConflict = xerrors.New("resilience: kind is both counted and ignored")

// Config 错误分类配置
//
//	breaker:
//	  counted_kinds: [unavailable, timeout, internal, unknown]
//	  ignored_kinds: [not_found, conflict, invalid_input, unauthorized, forbidden, canceled]
type Config struct {
	CountedKinds []string `json:"counted_kinds" yaml:"counted_kinds" mapstructure:"counted_kinds"`
	IgnoredKinds []string `json:"ignored_kinds" yaml:"ignored_kinds" mapstructure:"ignored_kinds"`
}

// DefaultConfig 返回默认分类
func DefaultConfig() Config {
	return Config{
		CountedKinds: []string{
			string(xerrors.KindUnavailable),
			string(xerrors.KindTimeout),
			string(xerrors.KindInternal),
			string(xerrors.KindUnknown),
		},
		IgnoredKinds: []string{
			string(xerrors.KindNotFound),
			string(xerrors.KindConflict),
			string(xerrors.KindInvalidInput),
			string(xerrors.KindUnauthorized),
			string(xerrors.KindForbidden),
			string(xerrors.KindCanceled),
		},
	}
}

// Classifier 判断错误是否计入熔断失败
//
// 错误类型来自 xerrors.KindOf。忽略列表中的类型是业务错误；
// 其余类型（包括计入列表之外的未知类型）都计入失败。
type Classifier struct {
	counted map[xerrors.Kind]struct{}
	ignored map[xerrors.Kind]struct{}
}

// NewClassifier 根据配置创建分类器，类型名非法或冲突时返回错误
func NewClassifier(cfg Config) (*Classifier, error) {
	c := &Classifier{
		counted: make(map[xerrors.Kind]struct{}, len(cfg.CountedKinds)),
		ignored: make(map[xerrors.Kind]struct{}, len(cfg.IgnoredKinds)),
	}
	for _, s := range cfg.CountedKinds {
		k, err := xerrors.ParseKind(s)
		if err != nil {
			return nil, err
		}
		c.counted[k] = struct{}{}
	}
	for _, s := range cfg.IgnoredKinds {
		k, err := xerrors.ParseKind(s)
		if err != nil {
			return nil, err
		}
		if _, dup := c.counted[k]; dup {
			return nil, xerrors.Wrapf(ErrKindConflict, "kind %q", k)
		}
		c.ignored[k] = struct{}{}
	}
	return c, nil
}

// DefaultClassifier 使用 DefaultConfig 创建分类器
func DefaultClassifier() *Classifier {
	return xerrors.Must(NewClassifier(DefaultConfig()))
}

// Counts 报告 err 是否计入熔断失败，nil 不计入
func (c *Classifier) Counts(err error) bool {
	if err == nil {
		return false
	}
	k := xerrors.KindOf(err)
	if _, ok := c.counted[k]; ok {
		return true
	}
	_, ignored := c.ignored[k]
	return !ignored
}

// IsBusiness 报告 err 是否为业务错误
func (c *Classifier) IsBusiness(err error) bool {
	return err != nil && !c.Counts(err)
}
