/*
 * MIT License
 *
 * Copyright (c) 2020 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

package httpserver

import (
	libmap "github.com/mitchellh/mapstructure"
	libtml "github.com/pelletier/go-toml"
	spfvpr "github.com/spf13/viper"

	"github.com/nabbar/connpool/connpool"
	liberr "github.com/nabbar/connpool/errors"
)

// FileConfig is the on-disk shape of one driver deployment: the driver's own
// listener section plus the pools its scheduler should own. TLS sections are
// registered separately on the shared tlsregistry.Registry, so they are not
// repeated here.
type FileConfig struct {
	Driver Config            `mapstructure:"driver" json:"driver" yaml:"driver" toml:"driver"`
	Pools  []connpool.Config `mapstructure:"pools" json:"pools" yaml:"pools" toml:"pools"`
}

// LoadConfig reads path (format inferred from the extension: toml, yaml,
// json) through viper and validates every decoded section before returning.
func LoadConfig(path string) (*FileConfig, liberr.Error) {
	v := spfvpr.New()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, ErrorConfigRead.Error(err)
	}

	var out FileConfig

	if err := v.Unmarshal(&out, spfvpr.DecodeHook(libmap.ComposeDecodeHookFunc(
		libmap.StringToTimeDurationHookFunc(),
		libmap.StringToSliceHookFunc(","),
	))); err != nil {
		return nil, ErrorConfigRead.Error(err)
	}

	if e := out.Driver.Validate(); e != nil {
		return nil, e
	}

	for _, p := range out.Pools {
		if e := p.Validate(); e != nil {
			return nil, e
		}
	}

	return &out, nil
}

// DefaultFileConfig is LoadConfig's bootstrap counterpart: a single-pool
// plaintext deployment rendered as TOML, ready to write to disk and edit.
func DefaultFileConfig(name, bind string) ([]byte, liberr.Error) {
	cfg := FileConfig{
		Driver: DefaultConfig(name, bind),
		Pools:  []connpool.Config{connpool.DefaultConfig("default")},
	}

	b, err := libtml.Marshal(cfg)
	if err != nil {
		return nil, ErrorConfigRead.Error(err)
	}

	return b, nil
}
