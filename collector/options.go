package collector

import "io"

type Options struct {
	Files      []string
	Readers    []io.Reader
	Overwrites string
}

type Option func(o *Options) error

func (o *Options) Apply(opts ...Option) error {
	for _, oo := range opts {
		if err := oo(o); err != nil {
			return err
		}
	}
	return nil
}

// Files adds configuration files, later files take precedence.
func Files(f ...string) Option {
	return func(o *Options) error {
		o.Files = append(o.Files, f...)
		return nil
	}
}

// Readers adds in-memory configuration, merged after the files.
func Readers(r ...io.Reader) Option {
	return func(o *Options) error {
		o.Readers = append(o.Readers, r...)
		return nil
	}
}

// Overwrites is a YAML document merged last.
func Overwrites(s string) Option {
	return func(o *Options) error {
		o.Overwrites = s
		return nil
	}
}
