package sshproto

import "strconv"

// MsgType is an SSH transport message number.
// See http://www.iana.org/assignments/ssh-parameters/ssh-parameters.xhtml
type MsgType uint8

const (
	MsgDisconnect              MsgType = 1
	MsgIgnore                  MsgType = 2
	MsgUnimplemented           MsgType = 3
	MsgDebug                   MsgType = 4
	MsgServiceRequest          MsgType = 5
	MsgServiceAccept           MsgType = 6
	MsgKexInit                 MsgType = 20
	MsgNewKeys                 MsgType = 21
	MsgUserauthRequest         MsgType = 50
	MsgUserauthFailure         MsgType = 51
	MsgUserauthSuccess         MsgType = 52
	MsgUserauthBanner          MsgType = 53
	MsgUserauthInfoRequest     MsgType = 60
	MsgUserauthInfoResponse    MsgType = 61
	MsgGlobalRequest           MsgType = 80
	MsgRequestSuccess          MsgType = 81
	MsgRequestFailure          MsgType = 82
	MsgChannelOpen             MsgType = 90
	MsgChannelOpenConfirmation MsgType = 91
	MsgChannelOpenFailure      MsgType = 92
	MsgChannelWindowAdjust     MsgType = 93
	MsgChannelData             MsgType = 94
	MsgChannelExtendedData     MsgType = 95
	MsgChannelEOF              MsgType = 96
	MsgChannelClose            MsgType = 97
	MsgChannelRequest          MsgType = 98
	MsgChannelSuccess          MsgType = 99
	MsgChannelFailure          MsgType = 100
)

var msgNames = map[MsgType]string{
	MsgDisconnect:              "SSH_MSG_DISCONNECT",
	MsgIgnore:                  "SSH_MSG_IGNORE",
	MsgUnimplemented:           "SSH_MSG_UNIMPLEMENTED",
	MsgDebug:                   "SSH_MSG_DEBUG",
	MsgServiceRequest:          "SSH_MSG_SERVICE_REQUEST",
	MsgServiceAccept:           "SSH_MSG_SERVICE_ACCEPT",
	MsgKexInit:                 "SSH_MSG_KEXINIT",
	MsgNewKeys:                 "SSH_MSG_NEWKEYS",
	MsgUserauthRequest:         "SSH_MSG_USERAUTH_REQUEST",
	MsgUserauthFailure:         "SSH_MSG_USERAUTH_FAILURE",
	MsgUserauthSuccess:         "SSH_MSG_USERAUTH_SUCCESS",
	MsgUserauthBanner:          "SSH_MSG_USERAUTH_BANNER",
	MsgUserauthInfoRequest:     "SSH_MSG_USERAUTH_INFO_REQUEST",
	MsgUserauthInfoResponse:    "SSH_MSG_USERAUTH_INFO_RESPONSE",
	MsgGlobalRequest:           "SSH_MSG_GLOBAL_REQUEST",
	MsgRequestSuccess:          "SSH_MSG_REQUEST_SUCCESS",
	MsgRequestFailure:          "SSH_MSG_REQUEST_FAILURE",
	MsgChannelOpen:             "SSH_MSG_CHANNEL_OPEN",
	MsgChannelOpenConfirmation: "SSH_MSG_CHANNEL_OPEN_CONFIRMATION",
	MsgChannelOpenFailure:      "SSH_MSG_CHANNEL_OPEN_FAILURE",
	MsgChannelWindowAdjust:     "SSH_MSG_CHANNEL_WINDOW_ADJUST",
	MsgChannelData:             "SSH_MSG_CHANNEL_DATA",
	MsgChannelExtendedData:     "SSH_MSG_CHANNEL_EXTENDED_DATA",
	MsgChannelEOF:              "SSH_MSG_CHANNEL_EOF",
	MsgChannelClose:            "SSH_MSG_CHANNEL_CLOSE",
	MsgChannelRequest:          "SSH_MSG_CHANNEL_REQUEST",
	MsgChannelSuccess:          "SSH_MSG_CHANNEL_SUCCESS",
	MsgChannelFailure:          "SSH_MSG_CHANNEL_FAILURE",
}

func (t MsgType) String() string {
	if name, ok := msgNames[t]; ok {
		return name
	}
	return "SSH_MSG_" + strconv.Itoa(int(t))
}
