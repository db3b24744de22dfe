// Package platforms 汇总注册所有 Cisco 平台驱动，导入即生效
package platforms

import (
	_ "github.com/sshcollectorpro/netconfig/addone/device/platforms/cisco_asa"
	_ "github.com/sshcollectorpro/netconfig/addone/device/platforms/cisco_ios"
	_ "github.com/sshcollectorpro/netconfig/addone/device/platforms/cisco_nxos"
)
