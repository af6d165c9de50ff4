// Package config loads soapconnect settings from YAML or JSON files.
//
// Settings describe where the capability document lives, how to authenticate
// against the remote service and how operations are exposed:
//
//	endpoint: https://example.com/soap/users
//	security:
//	  scheme: WSSecurity
//	  username: alice
//	  password: secret
//	  passwordType: PasswordDigest
//	soapHeaders:
//	  - '<t:Trace xmlns:t="urn:trace">abc</t:Trace>'
//	  - element: {tenant: acme}
//	    name: Context
//	    prefix: ctx
//	    namespace: urn:context
//	operations:
//	  getUser:
//	    service: UserService
//	    port: UserPort
//	    operation: GetUser
//
// Files are validated against an embedded JSON schema before decoding, then
// defaults are applied.
package config
