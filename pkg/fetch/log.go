package fetch

import (
	l "github.com/Hubmakerlabs/relaychat/pkg/log"
)

var log, chk = l.GetStd()
