/*
 * Copyright 2025 CloudWeGo Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package palloc

import (
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"strings"

	"gopkg.in/yaml.v3"
)

// DoubleFreePolicy decides what Free does with pages that are already free.
type DoubleFreePolicy int

const (
	// DoubleFreePanic rejects the free before any page is touched.
	DoubleFreePanic DoubleFreePolicy = iota
	// DoubleFreeIgnore clears the range anyway. Only pages which were in
	// use are returned to the free counters.
	DoubleFreeIgnore
)

func (p DoubleFreePolicy) String() string {
	switch p {
	case DoubleFreePanic:
		return "panic"
	case DoubleFreeIgnore:
		return "ignore"
	}
	return fmt.Sprintf("DoubleFreePolicy(%d)", int(p))
}

// ParseDoubleFreePolicy parses the String form of a DoubleFreePolicy.
func ParseDoubleFreePolicy(s string) (DoubleFreePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "panic":
		return DoubleFreePanic, nil
	case "ignore":
		return DoubleFreeIgnore, nil
	}
	return 0, fmt.Errorf("%w: unknown double free policy %q", ErrBadOption, s)
}

// Option ...
type Option struct {
	// UserPageLimit caps the pages given to the user pool.
	// The user pool gets half of the managed pages, or UserPageLimit if smaller.
	UserPageLimit int

	// Poison overwrites freed pages with PoisonByte before they are released,
	// so stale references read garbage instead of plausible data.
	Poison     bool
	PoisonByte byte

	// DoubleFree is the policy for freeing pages that are not in use.
	DoubleFree DoubleFreePolicy

	// Logger receives the pool layout at init. nil means the standard logger.
	Logger *log.Logger

	// Quiet disables the init messages.
	Quiet bool
}

// DefaultOption returns the default values of Option.
func DefaultOption() *Option {
	return &Option{
		UserPageLimit: math.MaxInt,
		Poison:        true,
		PoisonByte:    0xcc,
		DoubleFree:    DoubleFreePanic,
	}
}

func (o *Option) validate() error {
	if o.UserPageLimit < 0 {
		return fmt.Errorf("%w: userPageLimit must be >= 0, got %d", ErrBadOption, o.UserPageLimit)
	}
	switch o.DoubleFree {
	case DoubleFreePanic, DoubleFreeIgnore:
	default:
		return fmt.Errorf("%w: unknown double free policy %d", ErrBadOption, int(o.DoubleFree))
	}
	return nil
}

func (o *Option) logger() *log.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return log.Default()
}

type optionYAML struct {
	UserPageLimit *int    `yaml:"userPageLimit"`
	Poison        *bool   `yaml:"poison"`
	PoisonByte    *int    `yaml:"poisonByte"`
	DoubleFree    *string `yaml:"doubleFree"`
	Quiet         *bool   `yaml:"quiet"`
}

// LoadOption reads an Option from YAML. Absent keys keep their DefaultOption value.
//
//	userPageLimit: 256
//	poison: true
//	poisonByte: 0xcc
//	doubleFree: ignore
//	quiet: false
func LoadOption(r io.Reader) (*Option, error) {
	var y optionYAML
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&y); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %v", ErrBadOption, err)
	}

	o := DefaultOption()
	if y.UserPageLimit != nil {
		o.UserPageLimit = *y.UserPageLimit
	}
	if y.Poison != nil {
		o.Poison = *y.Poison
	}
	if y.PoisonByte != nil {
		if *y.PoisonByte < 0 || *y.PoisonByte > math.MaxUint8 {
			return nil, fmt.Errorf("%w: poisonByte out of range: %d", ErrBadOption, *y.PoisonByte)
		}
		o.PoisonByte = byte(*y.PoisonByte)
	}
	if y.DoubleFree != nil {
		p, err := ParseDoubleFreePolicy(*y.DoubleFree)
		if err != nil {
			return nil, err
		}
		o.DoubleFree = p
	}
	if y.Quiet != nil {
		o.Quiet = *y.Quiet
	}
	if err := o.validate(); err != nil {
		return nil, err
	}
	return o, nil
}
