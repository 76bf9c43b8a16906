package leasedb

import (
	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// leaseBlock has the following format:
//
//	lease {
//		interface "eth0";
//		fixed-address 192.0.2.50;
//		option routers 192.0.2.1;
//		renew 2 2026/10/20 12:00:00;
//		...
//	}
type leaseBlock struct {
	Statements []*statement `parser:"'lease' '{' ( @@ | ';' )* '}'"`
}

type statement struct {
	Bootp      bool       `parser:"  @'bootp' ';'"`
	Interface  *string    `parser:"| 'interface' @String ';'"`
	Name       *string    `parser:"| 'name' @String ';'"`
	Address    *string    `parser:"| 'fixed-address' @IPv4 ';'"`
	Filename   *string    `parser:"| 'filename' @String ';'"`
	ServerName *string    `parser:"| 'server-name' @String ';'"`
	Medium     *string    `parser:"| 'medium' @String ';'"`
	Option     *option    `parser:"| 'option' @@ ';'"`
	Renew      *timestamp `parser:"| 'renew' @@ ';'"`
	Rebind     *timestamp `parser:"| 'rebind' @@ ';'"`
	Expire     *timestamp `parser:"| 'expire' @@ ';'"`
}

// option is "option <name> <value> [, <value>]*". The name may carry an
// option space prefix such as "dhcp.".
type option struct {
	Name   string   `parser:"@Ident"`
	Values []string `parser:"@( String | IPv4 | Hex | HexValue | Number | Ident ) ( ','? @( String | IPv4 | Hex | HexValue | Number | Ident ) )*"`
}

// timestamp is either "never" or "<weekday> YYYY/MM/DD HH:MM:SS" in UTC.
type timestamp struct {
	Never   bool   `parser:"( @'never'"`
	Weekday int    `parser:"| @Number"`
	When    string `parser:"  @DateTime )"`
}

var leaseLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Comment", Pattern: `#[^\n]*`},
	{Name: "String", Pattern: `"(\\.|[^"\\])*"`},
	{Name: "DateTime", Pattern: `\d{4}/\d{1,2}/\d{1,2}[ \t]+\d{1,2}:\d{1,2}:\d{1,2}`},
	{Name: "IPv4", Pattern: `\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}`},
	{Name: "Hex", Pattern: `[0-9a-fA-F]{1,2}(:[0-9a-fA-F]{1,2})+`},
	{Name: "HexValue", Pattern: `0[xX][0-9a-fA-F]+`},
	{Name: "Number", Pattern: `-?\d+`},
	{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z0-9_.-]*`},
	{Name: "Punct", Pattern: `[;,{}]`},
	{Name: "Whitespace", Pattern: `[ \t\r\n]+`},
})

// leaseParser parses a single block. The file is cut into blocks first so
// that one damaged block does not hide the rest.
var leaseParser = participle.MustBuild[leaseBlock](
	participle.Lexer(leaseLexer),
	participle.Unquote("String"),
	participle.Elide("Whitespace", "Comment"),
	participle.UseLookahead(2),
)
