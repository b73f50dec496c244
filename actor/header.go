/*
 * Copyright 2025 tomoncle.
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

package actor

import (
	"strings"

	"github.com/tomoncle/bedrock/utils"
	"golang.org/x/text/language"
)

// HeaderName carries the acting identity between processes.
const HeaderName = "ActorSession"

const (
	headerSeparator = "_"
	headerNone      = "none"
	headerParts     = 6
)

var log = utils.NewLogger("ACTOR")

// EncodeHeader serializes a as id_name_role_locale_channel_source. Absent
// locale, channel and source are written as "none".
func EncodeHeader(a Actor) string {
	return strings.Join([]string{
		a.ID,
		a.Name,
		a.Role.String(),
		localeLanguage(a.Locale),
		orNone(a.Channel),
		orNone(a.Source),
	}, headerSeparator)
}

// DecodeHeader parses a header value produced by EncodeHeader. Malformed
// values yield AnonymousActor.
func DecodeHeader(value string) Actor {
	parts := strings.Split(value, headerSeparator)
	if len(parts) != headerParts {
		log.Warnf("invalid %s header [%s], continuing as anonymous", HeaderName, value)
		return AnonymousActor
	}
	role, ok := ParseRoleType(parts[2])
	if !ok {
		log.Warnf("unknown role [%s] in %s header, continuing as anonymous", parts[2], HeaderName)
		return AnonymousActor
	}
	locale := language.Und
	if parts[3] != headerNone {
		if tag, err := language.Parse(parts[3]); err == nil {
			locale = tag
		}
	}
	return Actor{
		ID:      parts[0],
		Name:    parts[1],
		Role:    role,
		Locale:  locale,
		Channel: fromNone(parts[4]),
		Source:  fromNone(parts[5]),
	}
}

func localeLanguage(tag language.Tag) string {
	if tag == language.Und {
		return headerNone
	}
	base, conf := tag.Base()
	if conf == language.No {
		return headerNone
	}
	return base.String()
}

func orNone(s string) string {
	if s == "" {
		return headerNone
	}
	return s
}

func fromNone(s string) string {
	if s == headerNone {
		return ""
	}
	return s
}
