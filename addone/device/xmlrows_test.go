package device

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestXMLRowsMacTable(t *testing.T) {
	rows, err := XMLRows(readTestdata(t, "nxos_mac_table.xml.txt"), "ROW_mac_address")
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "1234.5678.90ab", rows[0]["disp_mac_addr"])
	assert.Equal(t, "1", rows[0]["disp_vlan"])
	assert.Equal(t, "port-channel1", rows[0]["disp_port"])
	assert.Equal(t, "*", rows[0]["disp_type"])
	assert.Equal(t, "Ethernet1/1", rows[1]["disp_port"])
	assert.Equal(t, "100", rows[2]["disp_vlan"])

	// 第一个 ROW 之前的 header 元素不进入结果
	for _, r := range rows {
		assert.NotContains(t, r, "header")
		assert.NotContains(t, r, "__XML__INTF_output")
	}
}

func TestXMLRowsNoMatchingRows(t *testing.T) {
	out := `<?xml version="1.0" encoding="ISO-8859-1"?>
<nf:rpc-reply xmlns:nf="urn:ietf:params:xml:ns:netconf:base:1.0"><nf:data><show/></nf:data></nf:rpc-reply>
]]>]]>`
	rows, err := XMLRows(out, "ROW_interface")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestXMLRowsWithoutXML(t *testing.T) {
	_, err := XMLRows("% Invalid command at '^' marker.", "ROW_interface")
	assert.ErrorIs(t, err, ErrNoXML)
}

func TestXMLRowsNamespacedRows(t *testing.T) {
	out := `<?xml version="1.0"?>
<nf:rpc-reply xmlns:nf="urn:ietf:params:xml:ns:netconf:base:1.0" xmlns:if="http://www.cisco.com/nxos:1.0:if_manager">
<nf:data><if:TABLE_interface>
<if:ROW_interface><if:interface>Ethernet1/1</if:interface><if:state>connected</if:state></if:ROW_interface>
<if:ROW_interface><if:interface>Ethernet1/2</if:interface><if:state>notconnect</if:state></if:ROW_interface>
</if:TABLE_interface></nf:data></nf:rpc-reply>`
	rows, err := XMLRows(out, "ROW_interface")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, Row{"interface": "Ethernet1/1", "state": "connected"}, rows[0])
	assert.Equal(t, Row{"interface": "Ethernet1/2", "state": "notconnect"}, rows[1])
}

func TestXMLRowsIgnoresFieldsAfterLastRow(t *testing.T) {
	out := `<?xml version="1.0"?>
<nf:rpc-reply xmlns:nf="urn:ietf:params:xml:ns:netconf:base:1.0"><nf:data><show>
<TABLE_mac_address>
<ROW_mac_address><disp_mac_addr>1234.5678.90ab</disp_mac_addr><disp_vlan>1</disp_vlan></ROW_mac_address>
<ROW_mac_address><disp_mac_addr>90ab.1234.5678</disp_mac_addr><disp_vlan>10</disp_vlan></ROW_mac_address>
</TABLE_mac_address>
<total_entries>2</total_entries>
<__readonly__><footer>done</footer></__readonly__>
</show></nf:data></nf:rpc-reply>`
	rows, err := XMLRows(out, "ROW_mac_address")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, Row{"disp_mac_addr": "90ab.1234.5678", "disp_vlan": "10"}, rows[1])
	for _, r := range rows {
		assert.NotContains(t, r, "total_entries")
		assert.NotContains(t, r, "footer")
	}
}

func TestXMLRowsTruncatedReply(t *testing.T) {
	_, err := XMLRows(`<?xml version="1.0"?><nf:rpc-reply><ROW_interface><interface>Eth1/1</nf:rpc-reply>`, "ROW_interface")
	assert.Error(t, err)
}
