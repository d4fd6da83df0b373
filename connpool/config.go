/*
 * MIT License
 *
 * Copyright (c) 2022 Nicolas JUHEL
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

package connpool

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	liberr "github.com/nabbar/connpool/errors"
)

// Config is one pool's tunable admission policy, decoded from viper/toml
// into this struct, then Validate before New accepts it.
type Config struct {
	Name string `mapstructure:"name" json:"name" yaml:"name" toml:"name" validate:"required"`

	MinThreads     int `mapstructure:"min_threads" json:"min_threads" yaml:"min_threads" toml:"min_threads" validate:"gte=0"`
	MaxThreads     int `mapstructure:"max_threads" json:"max_threads" yaml:"max_threads" toml:"max_threads" validate:"gtefield=MinThreads"`
	ConnsPerThread int `mapstructure:"conns_per_thread" json:"conns_per_thread" yaml:"conns_per_thread" toml:"conns_per_thread" validate:"gte=0"`

	IdleTimeout time.Duration `mapstructure:"idle_timeout" json:"idle_timeout" yaml:"idle_timeout" toml:"idle_timeout" validate:"gte=0"`

	HighWaterMark int  `mapstructure:"high_water_mark" json:"high_water_mark" yaml:"high_water_mark" toml:"high_water_mark" validate:"gtefield=LowWaterMark"`
	LowWaterMark  int  `mapstructure:"low_water_mark" json:"low_water_mark" yaml:"low_water_mark" toml:"low_water_mark" validate:"gte=0"`
	RejectOverrun bool `mapstructure:"reject_overrun" json:"reject_overrun" yaml:"reject_overrun" toml:"reject_overrun"`
}

// Validate runs the struct tags and folds every failing field into a
// single liberr.Error chain - the same pattern httpserver.Config.Validate
// follows.
func (c Config) Validate() liberr.Error {
	val := validator.New()
	err := val.Struct(c)

	if err == nil {
		return nil
	}

	if e, ok := err.(*validator.InvalidValidationError); ok {
		return ErrorPoolValidate.Error(e)
	}

	out := ErrorPoolValidate.Error(nil)

	for _, e := range err.(validator.ValidationErrors) {
		//nolint goerr113
		out.Add(fmt.Errorf("config field '%s' is not validated by constraint '%s'", e.Field(), e.ActualTag()))
	}

	if out.HasParent() {
		return out
	}

	return nil
}

// DefaultConfig returns a small pool sized for tests and low-traffic
// vhosts: min=2, max=8, low=1, high=4, reject disabled.
func DefaultConfig(name string) Config {
	return Config{
		Name:           name,
		MinThreads:     2,
		MaxThreads:     8,
		ConnsPerThread: 10000,
		IdleTimeout:    30 * time.Second,
		HighWaterMark:  4,
		LowWaterMark:   1,
		RejectOverrun:  false,
	}
}
